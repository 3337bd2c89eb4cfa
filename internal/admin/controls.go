package admin

import "github.com/DoyleJ11/selection-protocol/internal/cooldown"

// Control is one keypress button on the panel.
type Control struct {
	Name   string // operator command name
	Label  string
	Button string // element id
	Badge  string // cooldown badge element id, empty when the control has none
	Key    string
	Group  string
}

var (
	killControl    = Control{Name: "kill", Label: "[Delete] KILL", Button: "btn-kill", Badge: "cd-kill", Key: "Delete", Group: cooldown.GroupPrimary}
	layControl     = Control{Name: "lay", Label: "[Ins] LAY", Button: "btn-lay", Badge: "cd-lay", Key: "Insert", Group: cooldown.GroupPrimary}
	extendControl  = Control{Name: "extend", Label: "[x] EXTEND (30s)", Button: "btn-extend", Badge: "cd-extend", Key: "x", Group: cooldown.GroupExtend}
	camGenControl  = Control{Name: "cam-gen", Label: "[Ctrl+G] Generation", Button: "btn-cam-gen", Key: "ctrl+g", Group: cooldown.GroupCamera}
	camOldControl  = Control{Name: "cam-old", Label: "[Ctrl+O] Oldest", Button: "btn-cam-old", Key: "ctrl+o", Group: cooldown.GroupCamera}
	camRandControl = Control{Name: "cam-rand", Label: "[Ctrl+R] Random", Button: "btn-cam-rand", Key: "ctrl+r", Group: cooldown.GroupCamera}
	zoomInControl  = Control{Name: "zoom-in", Label: "[KP+] Zoom In", Button: "btn-zoom-in", Badge: "cd-zoom-in", Key: "KP_Add", Group: cooldown.GroupZoomIn}
	zoomOutControl = Control{Name: "zoom-out", Label: "[KP-] Zoom Out", Button: "btn-zoom-out", Badge: "cd-zoom-out", Key: "KP_Subtract", Group: cooldown.GroupZoomOut}

	primaryControls = []Control{killControl, layControl}
	cameraControls  = []Control{camGenControl, camOldControl, camRandControl}
)

// Controls lists every keypress button in panel order.
var Controls = []Control{
	killControl, layControl, extendControl,
	camGenControl, camOldControl, camRandControl,
	zoomInControl, zoomOutControl,
}

func LookupControl(name string) (Control, bool) {
	for _, c := range Controls {
		if c.Name == name {
			return c, true
		}
	}
	return Control{}, false
}

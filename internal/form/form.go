// Package form enforces the crop→stage dependency of the advisory form
// and exposes the current validated field values. It is pure state; no
// network and no rendering.
package form

import (
	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/catalog"
)

// StagePlaceholder is shown for the stage control until a valid crop is
// selected.
const StagePlaceholder = "Please select a crop first"

// State holds the advisory form's field values.
type State struct {
	Crop           string
	StageIndex     int
	SoilType       string
	Location       *api.GPSLocation
	EnableSMS      bool
	EnableWhatsApp bool
	EnableVoice    bool
}

// Controller drives the form state machine. A nil catalog (taxonomy not
// loaded) keeps the stage control disabled for every crop.
type Controller struct {
	cat *catalog.Catalog

	state        State
	stageEnabled bool
	stageBound   int
}

// NewController creates a Controller. SMS notifications default to on,
// matching the backend default.
func NewController(cat *catalog.Catalog) *Controller {
	return &Controller{
		cat:   cat,
		state: State{EnableSMS: true},
	}
}

// State returns a copy of the current field values.
func (c *Controller) State() State { return c.state }

// StageEnabled reports whether the stage control is usable.
func (c *Controller) StageEnabled() bool { return c.stageEnabled }

// StageBound returns the stage control's upper bound (len(stages)-1), or
// 0 while disabled.
func (c *Controller) StageBound() int { return c.stageBound }

// SelectCrop records a crop selection. A crop present in the catalog
// enables the stage control, sets its bound from the crop's stages, and
// resets the stage index to 0. An empty or unknown crop disables the
// stage control and resets progress.
func (c *Controller) SelectCrop(crop string) {
	c.state.Crop = crop
	c.state.StageIndex = 0

	if c.cat == nil || crop == "" {
		c.stageEnabled = false
		c.stageBound = 0
		return
	}
	stages := c.cat.Stages(crop)
	if stages == nil {
		c.stageEnabled = false
		c.stageBound = 0
		return
	}
	c.stageEnabled = true
	c.stageBound = len(stages) - 1
}

// SetStage moves the stage slider. The index is clamped to the current
// bound; moving a disabled control is a no-op.
func (c *Controller) SetStage(index int) {
	if !c.stageEnabled {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > c.stageBound {
		index = c.stageBound
	}
	c.state.StageIndex = index
}

// StageLabel returns the label of the selected stage, or the placeholder
// while the stage control is disabled.
func (c *Controller) StageLabel() string {
	if !c.stageEnabled {
		return StagePlaceholder
	}
	label, err := c.cat.StageLabel(c.state.Crop, c.state.StageIndex)
	if err != nil {
		return StagePlaceholder
	}
	return label
}

// Progress returns the stage progress percentage. A crop with a single
// stage has no slider travel, so it reads as 100%: the one stage is
// always the selected one.
func (c *Controller) Progress() float64 {
	if !c.stageEnabled {
		return 0
	}
	if c.stageBound == 0 {
		return 100
	}
	return float64(c.state.StageIndex) / float64(c.stageBound) * 100
}

// SetSoil records the soil type selection.
func (c *Controller) SetSoil(soil string) { c.state.SoilType = soil }

// SetLocation records the field's GPS coordinates.
func (c *Controller) SetLocation(lat, lon float64) {
	c.state.Location = &api.GPSLocation{Latitude: lat, Longitude: lon}
}

// SetChannels records the notification channel flags.
func (c *Controller) SetChannels(sms, whatsapp, voice bool) {
	c.state.EnableSMS = sms
	c.state.EnableWhatsApp = whatsapp
	c.state.EnableVoice = voice
}

// Clear resets the form to its initial state.
func (c *Controller) Clear() {
	c.state = State{EnableSMS: true}
	c.stageEnabled = false
	c.stageBound = 0
}

package speech

import (
	"strings"

	"github.com/google/uuid"

	"natranscript/internal/config"
)

// Device describes the capturing client in the session metadata.
type Device struct {
	InputType    string
	Family       string
	NetworkType  string
	OSName       string
	OSVersion    string
	Manufacturer string
	Model        string
}

// Application names the calling program.
type Application struct {
	Name    string
	Version string
}

// RequestMetadata is sent once per session before any audio.
type RequestMetadata struct {
	SessionID   string
	Locale      string
	ServiceName string
	Application Application
	Device      Device
}

// NewRequestMetadata builds metadata with a fresh session id.
func NewRequestMetadata(cfg config.Speech) RequestMetadata {
	return RequestMetadata{
		SessionID:   newID(),
		Locale:      cfg.Locale,
		ServiceName: cfg.ServiceName,
		Application: Application{
			Name:    cfg.ApplicationName,
			Version: cfg.ApplicationVersion,
		},
		Device: Device{
			InputType:    "Near",
			Family:       "Desktop",
			NetworkType:  "Ethernet",
			OSName:       "Windows",
			OSVersion:    cfg.DeviceOSVersion,
			Manufacturer: cfg.DeviceManufacturer,
			Model:        cfg.DeviceModel,
		},
	}
}

type speechConfigPayload struct {
	Context speechContext `json:"context"`
}

type speechContext struct {
	System speechSystem `json:"system"`
	OS     speechOS     `json:"os"`
	Device speechDevice `json:"device"`
	Audio  speechAudio  `json:"audio"`
}

type speechSystem struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Service string `json:"service,omitempty"`
}

type speechOS struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

type speechDevice struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Family       string `json:"family"`
	Network      string `json:"network"`
}

type speechAudio struct {
	Source string `json:"source"`
}

func (m RequestMetadata) payload() speechConfigPayload {
	return speechConfigPayload{
		Context: speechContext{
			System: speechSystem{
				Name:    m.Application.Name,
				Version: m.Application.Version,
				Service: m.ServiceName,
			},
			OS: speechOS{
				Platform: m.Device.OSName,
				Name:     m.Device.OSName,
				Version:  m.Device.OSVersion,
			},
			Device: speechDevice{
				Manufacturer: m.Device.Manufacturer,
				Model:        m.Device.Model,
				Version:      m.Device.OSVersion,
				Family:       m.Device.Family,
				Network:      m.Device.NetworkType,
			},
			Audio: speechAudio{Source: m.Device.InputType},
		},
	}
}

// newID returns a dashless upper-case UUID, the form the service expects in
// X-RequestId and X-ConnectionId headers.
func newID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

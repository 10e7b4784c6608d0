package encode

import (
	"strings"

	"eraser/internal/config"
	"eraser/internal/services"
)

const (
	TierStandard = "standard"
	TierHigh     = "high"
)

// Profile is a named quality tier.
type Profile struct {
	Name       string
	Codec      string
	Bitrate    string
	Preset     string
	AudioCodec string
}

// ProfileFor resolves a tier name against the configured quality tiers. An
// empty name selects the configured default.
func ProfileFor(cfg *config.Config, name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.Quality.Default
	}
	tier, ok := cfg.TierFor(name)
	if !ok {
		return Profile{}, services.Wrap(services.ErrValidation, "validating", "quality tier", "unknown tier "+name+" (want standard or high)", nil)
	}
	return Profile{
		Name:       name,
		Codec:      tier.Codec,
		Bitrate:    tier.Bitrate,
		Preset:     tier.Preset,
		AudioCodec: tier.AudioCodec,
	}, nil
}

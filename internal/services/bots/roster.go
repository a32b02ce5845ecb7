package bots

import (
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/pkg/config"
)

// Roster builds the council from config. Two momentum horizons, a mean
// reverter and a breakout bot always sit; the remote model bot joins only
// when a scoring service is configured.
func Roster(cfg *config.Config) []domsvc.BotEvaluator {
	fast, slow := cfg.Bots.MomentumFast, cfg.Bots.MomentumSlow
	if fast <= 0 {
		fast = 9
	}
	if slow <= fast {
		slow = 27
	}

	roster := []domsvc.BotEvaluator{
		NewMomentumBot("momentum-fast", fast, slow),
		NewMomentumBot("momentum-slow", fast*2, slow*2),
		NewMeanReversionBot("meanrev"),
		NewBreakoutBot("breakout"),
	}
	if cfg.Bots.ModelServiceURL != "" {
		roster = append(roster, NewRemoteModelBot("edge-model", cfg.Bots.ModelServiceURL, cfg.Bots.ModelTimeout))
	}
	return roster
}

package main

import (
	"context"
	"strings"
	"time"

	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/notify"
	"github.com/ligun0805/multisender/internal/report"
	"github.com/ligun0805/multisender/internal/transfer"
)

// customFields returns the custom network inputs from config, or nil when
// the selection is predefined.
func (a *app) customFields() *network.CustomFields {
	if !strings.EqualFold(strings.TrimSpace(a.cfg.Network), network.Custom) {
		return nil
	}
	return &network.CustomFields{
		RPCURL:   a.cfg.CustomRPCURL,
		ChainID:  a.cfg.CustomChainID,
		Symbol:   a.cfg.CustomSymbol,
		Explorer: a.cfg.CustomExplorer,
	}
}

// send walks the confirmation sub-state explicitly so the confirmed request
// is at hand for the report. ok is false when nothing was sent.
func (a *app) send(ctx context.Context, recipient string, pct int) (results []transfer.Result, ok bool, err error) {
	p, err := a.ctl.RequestSend(recipient, pct)
	if err != nil {
		return nil, false, err
	}
	if !a.confirm(p.Prompt) {
		a.ctl.Decline()
		a.ctl.Notices().Post(notify.Info, "Send cancelled.")
		return nil, false, nil
	}
	results, err = a.ctl.Confirm(ctx)
	if err != nil {
		return nil, false, err
	}
	a.printResults(results)

	if a.cfg.ReportDir != "" {
		req := p.Request
		r := report.New(a.ctl.ID(), time.Now(), req.Network(), req.Recipient(), req.Percentage(), results)
		path, werr := report.Write(a.cfg.ReportDir, r)
		if werr != nil {
			a.log.Warn("report not written", "err", werr)
		} else {
			a.log.Info("report written", "path", path)
		}
	}
	return results, true, nil
}

func (a *app) clear(ctx context.Context) error {
	ok, err := a.ctl.Clear(ctx, a.confirm)
	if err == nil && !ok {
		a.ctl.Notices().Post(notify.Info, "Clear cancelled.")
	}
	return err
}

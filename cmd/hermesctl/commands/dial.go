package commands

import (
	"context"
	"fmt"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/examples"
	"github.com/bsc-ssrg/hermes/xport"
)

// dial declares every example request type, constructs a client-only
// engine, and looks up serverAddr, returning everything a scenario
// subcommand needs plus a close func the caller should defer.
func dial() (eng *hermes.Engine, ep hermes.Endpoint, closeFn func(), err error) {
	if err = examples.Declare(); err != nil {
		return nil, hermes.Endpoint{}, nil, fmt.Errorf("declare request types: %w", err)
	}

	eng, err = hermes.New(xport.BmiTCP, hermes.DefaultOptions(), "", false)
	if err != nil {
		return nil, hermes.Endpoint{}, nil, fmt.Errorf("construct engine: %w", err)
	}
	eng.Run()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ep, err = eng.Lookup(ctx, serverAddr)
	if err != nil {
		_ = eng.Close()
		return nil, hermes.Endpoint{}, nil, fmt.Errorf("lookup %s: %w", serverAddr, err)
	}

	return eng, ep, func() { _ = eng.Close() }, nil
}

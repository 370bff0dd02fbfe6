// Command usdw-sim replays the USDw demo scenarios against an in-memory
// ledger and prints every step, event and the final stats as JSON lines.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/internal/engine"
	"github.com/centralbank/usdw/backend/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "usdw-sim:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		scenarioName string
		issuer       string
		clientMSP    string
		sign         bool
		verbose      bool
	)
	flagSet := pflag.NewFlagSet("usdw-sim", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&scenarioName, "scenario", "happy", "scenario to run: "+strings.Join(scenarioNames(), ", "))
	flagSet.StringVar(&issuer, "issuer", engine.DefaultConfig().IssuerMSP, "MSP id of the issuer")
	flagSet.StringVar(&clientMSP, "client-msp", "Org2MSP", "MSP id that registers and moves funds")
	flagSet.BoolVar(&sign, "sign", true, "attach an ML-DSA-44 signature to attested transfers")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log ledger operations to stderr")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	sc, ok := scenarios[scenarioName]
	if !ok {
		return fmt.Errorf("unknown scenario %q (want one of %s)", scenarioName, strings.Join(scenarioNames(), ", "))
	}

	var err error
	log := zap.NewNop()
	if verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer log.Sync()
	}

	cfg := engine.DefaultConfig()
	cfg.IssuerMSP = issuer
	local := engine.NewLocal(store.NewMemory(), cfg, engine.WithLogger(log))

	sim := &simulator{local: local, issuer: issuer, client: clientMSP, out: out}
	if sign {
		if sim.signer, err = newTransferSigner(rand.Reader); err != nil {
			return err
		}
	}
	return sim.play(sc)
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

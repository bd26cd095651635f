// scavctl derives Cardano addresses from a seed phrase and runs batch
// registration and reward-consolidation flows against the Midnight
// Scavenger Mine rewards service.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/scavmine/scavctl/config"
	"github.com/scavmine/scavctl/internal/batch"
	"github.com/scavmine/scavctl/internal/ledger"
	"github.com/scavmine/scavctl/internal/log"
	"github.com/scavmine/scavctl/internal/rewards"
	"github.com/scavmine/scavctl/internal/scavenger"
	"github.com/scavmine/scavctl/internal/storage"
	"github.com/scavmine/scavctl/internal/wallet"
	"github.com/scavmine/scavctl/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.DefaultMainnet()
	network := "mainnet"

	// Scan for global flags that appear before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			cfg.DataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			cfg.DataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--api" && len(args) > 1:
			cfg.API.BaseURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--api="):
			cfg.API.BaseURL = args[0][len("--api="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			cfg.Log.Level = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			cfg.Log.Level = args[0][len("--log-level="):]
			args = args[1:]
		case args[0] == "--log-file" && len(args) > 1:
			cfg.Log.File = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-file="):
			cfg.Log.File = args[0][len("--log-file="):]
			args = args[1:]
		case args[0] == "--json-logs":
			cfg.Log.JSON = true
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	// Set address HRP based on network.
	if network == "testnet" {
		cfg.Network = config.Testnet
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		cfg.Network = config.Mainnet
		types.SetAddressHRP(types.MainnetHRP)
	}

	if err := config.Validate(cfg); err != nil {
		fatal("invalid configuration: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "register":
		cmdRegister(cfg, cmdArgs)
	case "consolidate":
		cmdConsolidate(cfg, cmdArgs)
	case "derive":
		cmdDerive(cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: scavctl [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.scavctl)
  --network <net>     mainnet (default) or testnet
  --api <url>         Rewards service base URL
  --log-level <lvl>   debug, info, warn, error (default: info)
  --log-file <path>   Also write JSON logs to a file
  --json-logs         JSON log output on the console

Commands:
  register --count <n> [--yes]
                      Derive n addresses from a seed phrase and register
                      each one with the rewards service. Resumable: re-run
                      after an interruption to pick up where it stopped.

  consolidate --to <address> [--yes]
                      Redirect the rewards of every registered address to
                      one destination address. Irreversible once accepted.

  derive --count <n>  Derive and print n addresses without touching the
                      network. Useful to verify a seed phrase.

The seed phrase is always prompted for with hidden input; it is never
accepted as a flag, never logged, and never written to disk.
`)
}

// ── register ────────────────────────────────────────────────────────────

func cmdRegister(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	count := fs.Int("count", 0, "Number of addresses to derive and register")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	if *count < rewards.MinAddressCount || *count > rewards.MaxAddressCount {
		fatal("Usage: scavctl register --count <n>   (1 <= n <= %d)", rewards.MaxAddressCount)
	}

	entropy := promptEntropy()
	defer zero(entropy)

	if !*yes {
		fmt.Fprintf(os.Stderr, "About to register %d addresses with %s on %s.\n",
			*count, cfg.API.BaseURL, cfg.Network)
		if !confirm("Proceed? [y/N]: ") {
			fatal("aborted")
		}
	}

	svc, closeDB := openService(cfg, "register", cfg.Batch.RegisterPerMinute)
	defer closeDB()

	ctx, stop := runContext()
	defer stop()
	summary, err := svc.RegisterAll(ctx, entropy, *count)
	if err != nil {
		zero(entropy)
		fatal("register: %v", err)
	}
	printSummary("Registered", summary)
	if summary.Failures > 0 {
		zero(entropy)
		os.Exit(1)
	}
}

// ── consolidate ─────────────────────────────────────────────────────────

func cmdConsolidate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	destination := fs.String("to", "", "Destination address for all rewards")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	if *destination == "" {
		fatal("Usage: scavctl consolidate --to <address>")
	}
	if !types.HasNetworkPrefix(*destination) {
		fatal("destination must be a %s address (prefix %q)", cfg.Network, types.GetAddressHRP()+"1")
	}

	entropy := promptEntropy()
	defer zero(entropy)

	if !*yes {
		fmt.Fprintf(os.Stderr, `This redirects ALL rewards of every registered address to:

  %s

This cannot be undone once the service accepts it.
`, *destination)
		fmt.Fprint(os.Stderr, "Type 'yes' to continue: ")
		if readLine() != "yes" {
			fatal("aborted")
		}
	}

	svc, closeDB := openService(cfg, "consolidate", cfg.Batch.ConsolidatePerMinute)
	defer closeDB()

	ctx, stop := runContext()
	defer stop()
	summary, err := svc.ConsolidateAll(ctx, entropy, *destination)
	if err != nil {
		zero(entropy)
		fatal("consolidate: %v", err)
	}
	printSummary("Consolidated", summary)
	if summary.Failures > 0 {
		zero(entropy)
		os.Exit(1)
	}
}

// ── derive ──────────────────────────────────────────────────────────────

func cmdDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	count := fs.Int("count", 1, "Number of addresses to derive")
	fs.Parse(args)

	if *count < 1 || *count > rewards.MaxAddressCount {
		fatal("Usage: scavctl derive --count <n>   (1 <= n <= %d)", rewards.MaxAddressCount)
	}

	entropy := promptEntropy()
	defer zero(entropy)

	records, err := wallet.Derive(entropy, *count)
	if err != nil {
		zero(entropy)
		fatal("derive: %v", err)
	}
	defer wallet.ZeroRecords(records)

	for i := range records {
		fmt.Printf("%4d  %s\n", records[i].Index, records[i].Address.String())
	}
}

// ── wiring ──────────────────────────────────────────────────────────────

// openService builds the service for one batch operation: the progress
// ledger in its own database namespace, the paced orchestrator, and the
// remote client.
func openService(cfg *config.Config, operation string, perMinute int) (*rewards.Service, func()) {
	if err := os.MkdirAll(cfg.RunDir(), 0700); err != nil {
		fatal("create data directory: %v", err)
	}
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		fatal("open ledger database: %v", err)
	}
	led, err := ledger.Open(db, operation)
	if err != nil {
		db.Close()
		fatal("open %s ledger: %v", operation, err)
	}
	if led.Count() > 0 {
		log.Ledger.Info().Int("recorded", led.Count()).Msg("resuming previous run")
	}

	orch := batch.New(led, perMinute, cfg.Batch.Backoff)
	orch.MaxAttempts = cfg.Batch.MaxAttempts

	svc := &rewards.Service{
		Client: scavenger.NewWithTimeout(cfg.API.BaseURL, cfg.API.Timeout),
		Orch:   orch,
		Dir:    cfg.RunDir(),
	}
	return svc, func() { db.Close() }
}

// runContext returns a context cancelled by Ctrl-C, so an interrupted
// batch stops cleanly after the in-flight address.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printSummary(verb string, s *batch.Summary) {
	fmt.Printf("%s: %d/%d\n", verb, s.Successes, s.Total)
	if s.Failures > 0 {
		fmt.Printf("Failed:  %d\n", s.Failures)
		for _, r := range s.Results {
			if !r.Success {
				fmt.Printf("  %s: %s\n", r.Address, r.Error)
			}
		}
	}
}

// ── seed phrase input ───────────────────────────────────────────────────

// promptEntropy reads the seed phrase with hidden input and converts it to
// entropy. The phrase bytes are zeroed before returning; only the entropy
// leaves this function, and the caller owns zeroing it.
func promptEntropy() []byte {
	fmt.Fprint(os.Stderr, "Enter seed phrase: ")
	phrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		fatal("read seed phrase: %v", err)
	}

	entropy, err := wallet.EntropyFromMnemonic(string(phrase))
	zero(phrase)
	if err != nil {
		fatal("%v", err)
	}
	return entropy
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ── prompts ─────────────────────────────────────────────────────────────

// confirm prompts on stderr and accepts "y" or "yes" (case-insensitive).
func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	answer := strings.ToLower(readLine())
	return answer == "y" || answer == "yes"
}

func readLine() string {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

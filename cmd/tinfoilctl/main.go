// Command tinfoilctl is a scriptable client for an attested confidential
// inference endpoint: it runs a verification and prints the resulting
// document, or issues a single request through whichever transport
// verification selects.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tinfoilsh/confidential-client-go/internal/config"
	"github.com/tinfoilsh/confidential-client-go/internal/logging"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	envCfg, err := config.Load()
	if err != nil {
		return err
	}

	root := flag.NewFlagSet("tinfoilctl", flag.ContinueOnError)
	root.SetOutput(io.Discard)
	enclaveFlag := root.String("enclave", envCfg.EnclaveURL, "Enclave URL (env TINFOIL_ENCLAVE_URL)")
	baseFlag := root.String("base", envCfg.BaseURL, "Inference base URL (env TINFOIL_BASE_URL)")
	repoFlag := root.String("repo", envCfg.ConfigRepo, "GitHub owner/repo to verify against (env TINFOIL_CONFIG_REPO)")
	apiKeyFlag := root.String("api-key", envCfg.APIKey, "Bearer token sent with requests (env TINFOIL_API_KEY)")
	unverifiedFlag := root.Bool("unverified", false, "Skip attestation and use opportunistic-privacy transport only")
	timeoutFlag := root.Duration("timeout", 30*time.Second, "Overall request timeout")
	verboseFlag := root.Bool("v", false, "Verbose logging to stderr (overrides LOG_LEVEL/LOG_FORMAT)")
	if err := root.Parse(args); err != nil {
		return usageError(err)
	}

	remaining := root.Args()
	if len(remaining) == 0 {
		return usageError(errors.New("no command specified"))
	}

	logger := logging.Discard("tinfoilctl")
	if *verboseFlag {
		logger = logging.New("tinfoilctl", "debug", "text")
		logger.SetOutput(os.Stderr)
	} else if envCfg.LogLevel != "" {
		logger = logging.New("tinfoilctl", envCfg.LogLevel, envCfg.LogFormat)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	cfg := runConfig{
		enclaveURL: strings.TrimSpace(*enclaveFlag),
		baseURL:    strings.TrimSpace(*baseFlag),
		configRepo: strings.TrimSpace(*repoFlag),
		apiKey:     strings.TrimSpace(*apiKeyFlag),
		unverified: *unverifiedFlag,
		logger:     logger,
	}

	switch remaining[0] {
	case "verify":
		return handleVerify(cmdCtx, cfg)
	case "request":
		return handleRequest(cmdCtx, cfg, remaining[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		return usageError(fmt.Errorf("unknown command %q", remaining[0]))
	}
}

func usageError(err error) error {
	printRootUsage()
	return err
}

func printRootUsage() {
	fmt.Println(`tinfoilctl: attest and talk to a confidential inference enclave

Usage:
  tinfoilctl [global flags] <command> [flags]

Global Flags:
  --enclave     Enclave URL (env TINFOIL_ENCLAVE_URL)
  --base        Inference base URL (env TINFOIL_BASE_URL)
  --repo        GitHub owner/repo to verify against (env TINFOIL_CONFIG_REPO)
  --api-key     Bearer token sent with requests (env TINFOIL_API_KEY)
  --unverified  Skip attestation, use opportunistic-privacy transport only
  --timeout     Overall request timeout (default 30s)
  -v            Verbose logging to stderr

Commands:
  verify              Run attestation and print the verification document as JSON
  request [-X method] [-d body | -d-file path] <path>  Issue one request through the selected transport`)
}

type runConfig struct {
	enclaveURL string
	baseURL    string
	configRepo string
	apiKey     string
	unverified bool
	logger     *logging.Logger
}

// Command ftclient is a high-throughput NDN file-transfer client: it
// pipelines Interests for a file's segments over a fixed window and
// reassembles the replies into a local file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/named-data/ndnc/std/engine/face"
	"github.com/named-data/ndnc/std/log"
	"github.com/named-data/ndnc/std/ndn"

	"github.com/named-data/ndnc/ft/client"
	"github.com/named-data/ndnc/ft/pipeline"
)

type logModule string

func (m logModule) String() string { return string(m) }

const logMod logModule = "ftclient"

type ftClient struct {
	prefix      string
	filepath    string
	filesize    uint64
	version     uint64
	manifest    string
	lifetimeMs  int
	payloadSize int
	chunkSize   int
	nthreads    int
	window      int
	faceNetwork string
	faceAddr    string
	output      string
}

func newCmd() (*cobra.Command, *ftClient) {
	fc := &ftClient{}

	cmd := &cobra.Command{
		Use:   "ftclient",
		Short: "Fetch a file over NDN using a pipelined Interest window",
		Long: `ftclient fetches a file from a remote NDN producer by pipelining
fixed-window Interests across one or more worker goroutines and
reassembling the Data replies into a local file.`,
		RunE: fc.run,
	}

	cmd.Flags().StringVar(&fc.prefix, "prefix", "", "NDN name prefix of the file (required)")
	cmd.Flags().StringVar(&fc.filepath, "filepath", "", "path component of the file name (required)")
	cmd.Flags().Uint64Var(&fc.filesize, "filesize", 0, "size of the file in bytes (required, >0)")
	cmd.Flags().Uint64Var(&fc.version, "version", 0, "NDN version component of the file")
	cmd.Flags().StringVar(&fc.manifest, "manifest", "", "YAML manifest of multiple files to fetch, instead of a single --filepath")
	cmd.Flags().IntVar(&fc.lifetimeMs, "lifetime", 1000, "Interest lifetime in milliseconds")
	cmd.Flags().IntVar(&fc.payloadSize, "payload-size", 1024, "bytes of content carried per segment")
	cmd.Flags().IntVar(&fc.chunkSize, "chunk", 262144, "bytes read per worker per round")
	cmd.Flags().IntVar(&fc.nthreads, "nthreads", 1, "number of concurrent worker goroutines")
	cmd.Flags().IntVar(&fc.window, "window", 128, "maximum simultaneously in-flight Interests")
	cmd.Flags().StringVar(&fc.faceNetwork, "face-network", "unix", "transport network for the face (unix, tcp, ws, wss)")
	cmd.Flags().StringVar(&fc.faceAddr, "face-addr", "/run/nfd/nfd.sock", "transport address for the face (host:port for tcp/ws/wss)")
	cmd.Flags().StringVar(&fc.output, "output", "", "output file path (default: basename of --filepath)")

	return cmd, fc
}

func (fc *ftClient) run(cmd *cobra.Command, _ []string) error {
	if fc.manifest != "" {
		return fc.runManifest()
	}

	if fc.prefix == "" || fc.filepath == "" || fc.filesize == 0 {
		return usageError(cmd, "--prefix, --filepath, and --filesize (>0) are all required")
	}

	f, pl, err := fc.openFace()
	if err != nil {
		return faceError(err)
	}
	defer pl.End()
	defer f.Close()

	output := fc.output
	if output == "" {
		output = filepath.Base(fc.filepath)
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg := client.Config{
		Prefix:      fc.prefix,
		FilePath:    fc.filepath,
		FileSize:    fc.filesize,
		Version:     fc.version,
		Lifetime:    time.Duration(fc.lifetimeMs) * time.Millisecond,
		PayloadSize: fc.payloadSize,
		ChunkSize:   fc.chunkSize,
		NThreads:    fc.nthreads,
	}

	return runWithSignalHandling(pl, func() error {
		return client.NewTransfer(cfg, pl).Run(out)
	})
}

func (fc *ftClient) runManifest() error {
	m, err := client.LoadManifest(fc.manifest)
	if err != nil {
		return err
	}

	f, pl, err := fc.openFace()
	if err != nil {
		return faceError(err)
	}
	defer pl.End()
	defer f.Close()

	return runWithSignalHandling(pl, func() error {
		for _, entry := range m.Files {
			output := entry.Output
			if output == "" {
				output = filepath.Base(entry.FilePath)
			}

			out, err := os.Create(output)
			if err != nil {
				return err
			}

			cfg := entry.Config(fc.prefix)
			err = client.NewTransfer(cfg, pl).Run(out)
			out.Close()
			if err != nil {
				return err
			}
			log.Info(logMod, "fetched file", "filepath", entry.FilePath, "output", output)
		}
		return nil
	})
}

// runWithSignalHandling runs fn on the current goroutine while a
// background goroutine watches for SIGINT/SIGTERM and calls pl.End()
// if one arrives, unblocking any worker waiting on a RxQueue.
func runWithSignalHandling(pl *pipeline.Pipeline, fn func() error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			log.Warn(logMod, "received signal, shutting down")
			pl.End()
		case <-done:
		}
	}()

	return fn()
}

func (fc *ftClient) openFace() (ndn.Face, *pipeline.Pipeline, error) {
	f, err := fc.newFace()
	if err != nil {
		return nil, nil, err
	}

	pl := pipeline.New(f, fc.window)
	pl.Run()
	if err := f.Open(); err != nil {
		return nil, nil, err
	}
	return f, pl, nil
}

// newFace builds the concrete Face for fc.faceNetwork: a WebSocketFace
// for ws/wss (dialing fc.faceNetwork + "://" + fc.faceAddr), or a
// StreamFace for unix/tcp; any other network is an error.
func (fc *ftClient) newFace() (ndn.Face, error) {
	switch fc.faceNetwork {
	case "ws", "wss":
		url := fc.faceNetwork + "://" + fc.faceAddr
		return face.NewWebSocketFace(url, false), nil
	case "unix", "tcp":
		return face.NewStreamFace(fc.faceNetwork, fc.faceAddr, fc.faceNetwork != "tcp"), nil
	default:
		return nil, fmt.Errorf("unsupported face network: %s", fc.faceNetwork)
	}
}

func usageError(cmd *cobra.Command, msg string) error {
	fmt.Fprintln(os.Stderr, cmd.UsageString())
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(2)
	return nil
}

func faceError(err error) error {
	fmt.Fprintln(os.Stderr, "error: failed to create face:", err)
	os.Exit(-1)
	return nil
}

func main() {
	cmd, _ := newCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	bridgeerrors "github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/invoke"
	"github.com/wippyai/source-peer/peer"
	"github.com/wippyai/source-peer/resource"
	"github.com/wippyai/source-peer/source"
	"github.com/wippyai/source-peer/style"
	"github.com/wippyai/source-peer/wasmbind"
)

var scenarios = []struct {
	run  func() error
	name string
}{
	{name: "roundtrip", run: runRoundTrip},
	{name: "native-teardown", run: runNativeTeardown},
	{name: "host-gc", run: runHostGC},
}

func main() {
	var (
		scenario    = flag.String("scenario", "all", "Scenario to run (roundtrip, native-teardown, host-gc, all)")
		verbose     = flag.Bool("v", false, "Log bridge activity to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		peer.SetLogger(logger.Named("peer"))
		style.SetLogger(logger.Named("style"))
		wasmbind.SetLogger(logger.Named("wasmbind"))
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*scenario); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(name string) error {
	ran := false
	for _, s := range scenarios {
		if name != "all" && name != s.name {
			continue
		}
		ran = true
		fmt.Printf("== %s\n", s.name)
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Println()
	}
	if !ran {
		return fmt.Errorf("unknown scenario %q", name)
	}
	return nil
}

func printEvent(e peer.Event) {
	fmt.Printf("  event %-15s source=%s state=%s ref=%s\n", e.Type, e.SourceID, e.State, e.Ref)
}

func runRoundTrip() error {
	st := style.New(style.WithName("roundtrip"))
	defer st.Close()

	src, err := source.New("r1", source.KindGeoJSON, source.WithAttribution("© OpenStreetMap"))
	if err != nil {
		return err
	}
	h, err := peer.NewHandle(src, peer.WithObserver(printEvent))
	if err != nil {
		return err
	}

	if err := h.AddTo(st); err != nil {
		return err
	}
	found, err := peer.Lookup(st, "r1")
	if err != nil {
		return err
	}
	fmt.Printf("  lookup returns same handle: %v\n", found == h)

	for _, m := range invoke.Default().Methods() {
		v, err := invoke.Default().Invoke(h, m.Name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-22s %v\n", m.Name, v)
	}

	if err := h.RemoveFrom(st); err != nil {
		return err
	}
	_, err = peer.Lookup(st, "r1")
	fmt.Printf("  lookup after detach: %v\n", err)
	return nil
}

func runNativeTeardown() error {
	st := style.New(style.WithName("teardown"))
	defer st.Close()

	table := resource.NewTable[peer.Handle]()
	defer table.Close()

	src, err := source.New("r1", source.KindVector, source.WithURL("mapbox://mapbox.mapbox-streets-v8"))
	if err != nil {
		return err
	}
	h, err := peer.NewHandle(src, peer.WithObserver(printEvent))
	if err != nil {
		return err
	}
	id, err := table.Insert(h)
	if err != nil {
		return err
	}
	if err := h.AddTo(st); err != nil {
		return err
	}

	if err := st.Destroy("r1"); err != nil {
		return err
	}

	wrapper, ok := table.Get(id)
	fmt.Printf("  handle %d still resolves: %v\n", id, ok)
	_, err = invoke.Default().Invoke(wrapper, invoke.NativeGetID)
	if !errors.Is(err, bridgeerrors.ErrNoPeer) {
		return fmt.Errorf("expected no-peer after teardown, got %v", err)
	}
	fmt.Printf("  invoke through sentinel: %v\n", err)
	runtime.KeepAlive(h)
	return nil
}

//go:noinline
func abandonHandle(done chan<- struct{}) (*source.Source, error) {
	src, err := source.New("orphan", source.KindRaster)
	if err != nil {
		return nil, err
	}
	_, err = peer.NewHandle(src, peer.WithObserver(func(e peer.Event) {
		printEvent(e)
		if e.Type == peer.EventHostFinalized {
			close(done)
		}
	}))
	return src, err
}

func runHostGC() error {
	done := make(chan struct{})
	src, err := abandonHandle(done)
	if err != nil {
		return err
	}

	deadline := time.After(5 * time.Second)
	for {
		runtime.GC()
		select {
		case <-done:
			fmt.Printf("  source dropped: %v\n", src.Dropped())
			return nil
		case <-deadline:
			return fmt.Errorf("host handle was not collected")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/coreseekdev/treeundo/pkg/changestream"
	"github.com/coreseekdev/treeundo/pkg/treedoc"
	"github.com/coreseekdev/treeundo/pkg/undocore"
)

// Config is the demo's optional on-disk configuration. Flags always win
// over a loaded file, the way the teacher's session/manager.go layers
// defaults under explicit overrides.
type Config struct {
	Addr string `yaml:"addr"`
}

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	addr := flag.String("addr", "", "if set, serve a live change feed at ws://<addr>/changes")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *addr != "" {
		cfg.Addr = *addr
	}

	doc := treedoc.NewTree("main")
	ctrl := undocore.NewUndoController(doc)
	defer ctrl.Close()

	ctrl.OnStateChange(func() {
		log.Printf("undo=%v redo=%v", ctrl.CanUndo(), ctrl.CanRedo())
	})

	var broadcaster *changestream.Broadcaster[treedoc.ChangeEvent]
	if cfg.Addr != "" {
		broadcaster = changestream.NewBroadcaster(doc.Bus())
		defer broadcaster.Close()
		startServer(cfg.Addr, broadcaster)
	}

	runBasicWalkthrough(doc, ctrl)
	runMoveConflictWalkthrough()

	if cfg.Addr != "" {
		waitForInterrupt()
	}
}

func loadConfig(path string) Config {
	var cfg Config
	if path == "" {
		return cfg
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("config: %v (continuing with defaults)", err)
		return cfg
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Printf("config: decode error: %v (continuing with defaults)", err)
	}
	return cfg
}

func startServer(addr string, broadcaster *changestream.Broadcaster[treedoc.ChangeEvent]) {
	mux := http.NewServeMux()
	mux.Handle("/changes", broadcaster)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("change feed server error: %v", err)
		}
	}()
	log.Printf("change feed listening at ws://%s/changes", addr)
}

func waitForInterrupt() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// runBasicWalkthrough exercises insert/undo/redo: type "Hello", type
// " world", undo twice, redo once.
func runBasicWalkthrough(doc *treedoc.Tree, ctrl *undocore.UndoController) {
	log.Println("== basic insert/undo/redo ==")

	insertText(doc, "main", []int{0}, "Hello")
	log.Printf("after insert #1: %q", doc.Text("main"))

	insertText(doc, "main", []int{5}, " world")
	log.Printf("after insert #2: %q", doc.Text("main"))

	if err := ctrl.UndoStep(nil); err != nil {
		log.Printf("undo #1 failed: %v", err)
	}
	log.Printf("after undo #1: %q", doc.Text("main"))

	if err := ctrl.UndoStep(nil); err != nil {
		log.Printf("undo #2 failed: %v", err)
	}
	log.Printf("after undo #2: %q", doc.Text("main"))

	if err := ctrl.RedoStep(nil); err != nil {
		log.Printf("redo #1 failed: %v", err)
	}
	log.Printf("after redo #1: %q", doc.Text("main"))
}

// runMoveConflictWalkthrough builds two sections, moves all of sectionA's
// text to the front of sectionB, inserts "-edit" into sectionB, undoes the
// edit (the top of the undo stack), then undoes the move by naming its
// batch explicitly. The two moves involved never share a target, so Stage
// B's post-fix runs but leaves the move unchanged.
func runMoveConflictWalkthrough() {
	log.Println("== move-conflict walkthrough ==")

	sections := treedoc.NewTree("sectionA", "sectionB")
	sctrl := undocore.NewUndoController(sections)
	defer sctrl.Close()

	insertText(sections, "sectionA", []int{0}, "alpha")
	insertText(sections, "sectionB", []int{0}, "beta")

	moveBatch, err := sections.EnqueueChange(treedoc.KindUser, func() error {
		return sections.ApplyOperation(treedoc.NewMoveOperation(
			treedoc.NewPosition("sectionA", []int{0}),
			treedoc.NewPosition("sectionB", []int{0}),
			sections.Len("sectionA"),
			sections.History().CurrentVersion(),
		))
	})
	if err != nil {
		log.Printf("move failed: %v", err)
		return
	}
	log.Printf("after move: A=%q B=%q", sections.Text("sectionA"), sections.Text("sectionB"))

	insertText(sections, "sectionB", []int{2}, "-edit")
	log.Printf("after edit: A=%q B=%q", sections.Text("sectionA"), sections.Text("sectionB"))

	if err := sctrl.UndoStep(nil); err != nil {
		log.Printf("undo edit failed: %v", err)
	}
	log.Printf("after undo edit: A=%q B=%q", sections.Text("sectionA"), sections.Text("sectionB"))

	if err := sctrl.UndoStep(moveBatch); err != nil {
		log.Printf("undo move failed: %v", err)
	}
	log.Printf("after undo move: A=%q B=%q", sections.Text("sectionA"), sections.Text("sectionB"))
}

func insertText(doc *treedoc.Tree, root treedoc.RootID, path []int, text string) {
	_, err := doc.EnqueueChange(treedoc.KindUser, func() error {
		pos := treedoc.NewPosition(root, path)
		return doc.ApplyOperation(treedoc.NewInsertOperation(pos, treedoc.TextNodeList(text), doc.History().CurrentVersion()))
	})
	if err != nil {
		log.Printf("insert %q at %v failed: %v", text, path, err)
	}
}

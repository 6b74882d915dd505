package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"areacloud/internal/net/ws"
	"areacloud/internal/viewer"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "replication endpoint")
	scale := flag.Float64("scale", viewer.DefaultScale, "terminal rows per block")
	fps := flag.Int("fps", 20, "client ticks per second")
	flag.Parse()

	if err := run(*addr, *scale, *fps); err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, scale float64, fps int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buffer := &viewer.Buffer{}
	client, err := ws.Dial(ctx, addr, ws.ClientConfig{
		Emitter: buffer,
		RNG:     rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	received := make(chan error, 1)
	go func() { received <- client.Run(ctx) }()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	if fps <= 0 {
		fps = 20
	}
	view := viewer.New(screen, client, buffer, scale)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case err := <-received:
			return err
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
					return nil
				case ev.Key() == tcell.KeyLeft:
					view.Pan(-1, 0)
				case ev.Key() == tcell.KeyRight:
					view.Pan(1, 0)
				case ev.Key() == tcell.KeyUp:
					view.Pan(0, -1)
				case ev.Key() == tcell.KeyDown:
					view.Pan(0, 1)
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			view.Frame(ctx)
		}
	}
}

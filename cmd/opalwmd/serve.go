package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"opalwm/internal/applog"
	"opalwm/internal/compositor"
	"opalwm/internal/cursor"
	"opalwm/internal/fb"
	"opalwm/internal/input"
	"opalwm/internal/session"
)

type serveOptions struct {
	fbDevice    string
	mouseDevice string
	socketName  string
	logSink     string
	noStdout    bool
	fakeFB      bool
	fakeWidth   int
	fakeHeight  int
	helloWorld  string
	noHello     bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the window manager server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.fbDevice, "fb-device", "dev:/fb", "framebuffer device path")
	flags.StringVar(&opts.mouseDevice, "mouse-device", "dev:/inmice", "mouse device path")
	flags.StringVar(&opts.socketName, "socket", "opal_wm::connect", "abstract socket name clients connect to")
	flags.StringVar(&opts.logSink, "log-sink", "dev:/ss", "log sink file path")
	flags.BoolVar(&opts.noStdout, "no-stdout-log", false, "suppress terminal logging")
	flags.BoolVar(&opts.fakeFB, "fake-fb", false, "use an in-memory framebuffer instead of opening fb-device (headless/dev mode)")
	flags.IntVar(&opts.fakeWidth, "fake-width", 1280, "width of the in-memory framebuffer when --fake-fb is set")
	flags.IntVar(&opts.fakeHeight, "fake-height", 800, "height of the in-memory framebuffer when --fake-fb is set")
	flags.StringVar(&opts.helloWorld, "hello-world", "sys:/bin/hello_world", "path to the demo client spawned at startup")
	flags.BoolVar(&opts.noHello, "no-hello-world", false, "skip spawning the demo client")

	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	logger, closeLog, err := applog.New(opts.logSink, opts.noStdout)
	if err != nil {
		// The log sink itself may be unavailable in a dev environment;
		// fall back to stdout-only rather than treating this as fatal.
		logger, closeLog, err = applog.New("", opts.noStdout)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
	}
	defer closeLog()

	fbuf, err := openFramebuffer(opts)
	if err != nil {
		return fmt.Errorf("open framebuffer: %w", err)
	}
	defer fbuf.Close()

	info := fbuf.Info()
	fbuf.DrawRectFilled(0, 0, int(info.Width), int(info.Height), fb.Background)

	store := compositor.New(fbuf)

	cursorID, cursorW, cursorH, err := installCursor(store)
	if err != nil {
		logger.Warn("cursor install failed, continuing without a cursor overlay", "err", err)
	}

	installDemoWindow(store, int(info.Width), int(info.Height))

	if !opts.noHello {
		spawnHelloWorld(logger, opts.helloWorld)
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cursorW > 0 && cursorH > 0 {
		startX, startY := int(info.Width)/2, int(info.Height)/2
		startX, startY, _ = store.MoveBy(cursorID, startX, startY)
		go runInputDispatcher(runCtx, logger, opts.mouseDevice, store, cursorID, cursorW, cursorH, startX, startY)
	}

	return runListener(runCtx, logger, opts.socketName, store)
}

func openFramebuffer(opts *serveOptions) (*fb.Framebuffer, error) {
	if opts.fakeFB {
		return fb.NewSynthetic(opts.fakeWidth, opts.fakeHeight), nil
	}
	return fb.Open(opts.fbDevice)
}

func installCursor(store *compositor.Store) (compositor.WindowID, int, int, error) {
	px, w, h, err := cursor.Load()
	if err != nil {
		return 0, 0, 0, err
	}
	win := &compositor.Window{Width: w, Height: h, Pixels: px}
	id, ok := store.AddWindow(win, compositor.Overlay)
	if !ok {
		return 0, 0, 0, fmt.Errorf("window id pool exhausted installing cursor")
	}
	return id, w, h, nil
}

func installDemoWindow(store *compositor.Store, fbW, fbH int) {
	const w, h = 200, 150
	if w > fbW || h > fbH {
		return
	}
	px := make([]fb.Pixel, w*h)
	for i := range px {
		px[i] = fb.NewOpaquePixel(0x3a, 0x6e, 0xa5)
	}
	store.AddWindow(&compositor.Window{
		PosX: 40, PosY: 40, Width: w, Height: h, Pixels: px,
	}, compositor.Normal)
}

func spawnHelloWorld(logger *slog.Logger, path string) {
	cmd := exec.Command(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to spawn demo client", "path", path, "err", err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("demo client exited", "path", path, "err", err)
		}
	}()
}

func runInputDispatcher(ctx context.Context, logger *slog.Logger, devicePath string, store *compositor.Store, cursorID compositor.WindowID, w, h, startX, startY int) {
	dev, err := input.OpenDevice(devicePath)
	if err != nil {
		logger.Warn("mouse device unavailable, input dispatch disabled", "device", devicePath, "err", err)
		return
	}
	defer dev.Close()

	d := input.NewDispatcher(store, logger, cursorID, startX, startY, w, h)

	go func() {
		<-ctx.Done()
		dev.Close()
	}()

	if err := d.Run(dev); err != nil {
		logger.Warn("input dispatcher stopped", "err", err)
	}
}

func runListener(ctx context.Context, logger *slog.Logger, socketName string, store *compositor.Store) error {
	ln, err := net.Listen("unixpacket", "@"+socketName)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", socketName, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("listening for clients", "socket", socketName)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Error("accept error", "err", err)
				continue
			}
		}
		sess := session.New(conn, store, logger)
		go sess.Serve()
	}
}

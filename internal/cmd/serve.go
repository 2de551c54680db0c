package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/imageio"
	"github.com/MeKo-Tech/darkroom/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve <image>",
	Short: "Serve live preview renders of one image over HTTP",
	Long: `Load an image once and re-render it for every request.

  GET  /render?exposure=20&temperature=-10   PNG of the adjusted preview
  POST /render                               same, with a JSON or YAML preset document as body
  GET  /histogram                            histogram JSON of the adjusted preview
  GET  /status                               render counters`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("preview", 1024, "Downscale so the longest side is at most this many pixels (0 keeps full size)")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent renders (default: number of CPUs)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for rendered responses")
	serveCmd.Flags().Uint64("seed", 0, "Seed for grain noise (0 draws a fresh random seed per render)")
	serveCmd.Flags().Float64("perlin-grain", 0, "Use Perlin grain with this feature size in pixels instead of white noise")
	addMaskFlags(serveCmd, "serve")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.preview", "preview")
	mustBind("serve.max_concurrent_renders", "max-concurrent-renders")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.seed", "seed")
	mustBind("serve.perlin_grain", "perlin-grain")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	preview := viper.GetInt("serve.preview")
	maxConc := viper.GetInt("serve.max_concurrent_renders")

	img, err := imageio.Load(args[0])
	if err != nil {
		return err
	}
	sourceSize := img.Bounds().Size()
	if preview > 0 {
		img = imageio.Preview(img, preview)
	}

	layers, err := loadLayers(cmd, "serve", sourceSize, img.Bounds().Size())
	if err != nil {
		return err
	}

	engine, err := newEngine("serve")
	if err != nil {
		return err
	}

	p := server.New(img, engine, server.Config{
		MaxConcurrent: maxConc,
		CacheControl:  viper.GetString("serve.cache_control"),
		Layers:        layers,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", p.Handler())

	logger.Info("preview server listening",
		"addr", addr,
		"image", args[0],
		"size", img.Bounds().Size().String(),
		"layers", len(layers),
		"max_concurrent_renders", maxConc,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

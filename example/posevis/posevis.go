/*
Example code showing how to visualize OpenPose output.  Keypoints written by
OpenPose with --write_json, and optionally the raw float16 network heatmaps,
are rendered over an image or streamed over a video.  The layer shown is
changed with the websocket control endpoint or by editing the config file.
*/
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/swdee/go-poserender"
	"github.com/swdee/go-poserender/config"
	"github.com/swdee/go-poserender/control"
	"github.com/swdee/go-poserender/pose"
	"github.com/swdee/go-poserender/render"
	"gocv.io/x/gocv"
)

const (
	// FPS is the video streaming rate
	FPS = 30
	// FPSinterval is the duration between video frames
	FPSinterval = time.Second / FPS
)

// Demo holds the renderer and its inputs
type Demo struct {
	cfg       config.Config
	top       *pose.Topology
	renderer  *poserender.PoseRenderer
	worker    *poserender.Worker
	heatMaps  poserender.HeatMapSource
	scale     float32
	font      render.Font
	showLabel bool
}

// NewDemo creates the renderer and starts its render thread
func NewDemo(ctx context.Context, cfg config.Config, heatMapsFile string,
	scale float32) (*Demo, error) {

	top, err := cfg.Topology()

	if err != nil {
		return nil, fmt.Errorf("error loading topology: %w", err)
	}

	d := &Demo{
		cfg:       cfg,
		top:       top,
		scale:     scale,
		font:      render.DefaultFont(),
		showLabel: true,
	}

	opts := []poserender.Option{}

	if heatMapsFile != "" {
		d.heatMaps, err = readHeatMaps(heatMapsFile, top, cfg.HeatMapsSize.Point())

		if err != nil {
			return nil, err
		}

		opts = append(opts, poserender.WithHeatMaps(d.heatMaps))
	}

	// default scale fits the heatmaps to the output width
	if d.scale == 0 {
		d.scale = float32(cfg.OutputSize.Width) / float32(cfg.HeatMapsSize.Width)
	}

	d.renderer, err = poserender.NewPoseRenderer(top, cfg.PoseRendererParams(),
		render.New(cfg.RenderParams()), opts...)

	if err != nil {
		return nil, fmt.Errorf("error creating pose renderer: %w", err)
	}

	d.worker = poserender.NewWorker(d.renderer, cfg.CPUCores, 2)

	if err := d.worker.Start(ctx); err != nil {
		return nil, fmt.Errorf("error starting render thread: %w", err)
	}

	log.Printf("Rendering %s, %d selectable elements\n", top.Name,
		d.renderer.NumberElementsToRender())

	return d, nil
}

// readHeatMaps reads raw little endian float16 heatmaps of every channel of
// the topology
func readHeatMaps(file string, top *pose.Topology, size image.Point) (*poserender.Float16HeatMaps, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening heatmaps: %w", err)
	}

	defer f.Close()

	raw := make([]uint16, top.NumberChannels()*size.X*size.Y)

	if err := binary.Read(f, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("error reading %d float16 heatmap values: %w", len(raw), err)
	}

	h := poserender.NewFloat16HeatMaps()
	h.Set(raw)

	return h, nil
}

// RenderFrame renders the keypoints over the frame, which is resized to the
// output size first.  Keypoints must already be in output coordinates.
func (d *Demo) RenderFrame(ctx context.Context, img gocv.Mat,
	keypoints pose.KeypointSet) (gocv.Mat, poserender.Result, error) {

	out := gocv.NewMat()
	gocv.Resize(img, &out, d.cfg.OutputSize.Point(), 0, 0, gocv.InterpolationLinear)

	done := make(chan poserender.Result, 1)

	err := d.worker.Submit(ctx, poserender.Job{
		Output:           &out,
		Keypoints:        keypoints,
		ScaleNetToOutput: d.scale,
		Done:             done,
	})

	if err != nil {
		out.Close()
		return gocv.Mat{}, poserender.Result{}, err
	}

	var res poserender.Result

	select {
	case res = <-done:
	case <-ctx.Done():
		// the worker still owns the frame
		go closeAfterRender(&out, done, d.worker.Done())
		return gocv.Mat{}, poserender.Result{}, ctx.Err()
	}

	if d.showLabel && res.Element >= 0 {
		if err := render.DrawLabel(&out, fmt.Sprintf("%d: %s", res.Element, res.Label), d.font); err != nil {
			slog.Warn("Failed to draw label", "error", err)
		}
	}

	return out, res, nil
}

// closeAfterRender closes out once the worker has rendered it or stopped
func closeAfterRender(out *gocv.Mat, done <-chan poserender.Result, stopped <-chan struct{}) {

	select {
	case <-done:
	case <-stopped:
	}

	out.Close()
}

// scaleFor returns the keypoint scale from the input frame to the output
func (d *Demo) scaleFor(img gocv.Mat) (float32, float32) {
	return float32(d.cfg.OutputSize.Width) / float32(img.Cols()),
		float32(d.cfg.OutputSize.Height) / float32(img.Rows())
}

// RenderImage renders a single image to the save file
func (d *Demo) RenderImage(ctx context.Context, imgFile, kpFile, saveFile string) error {

	img := gocv.IMRead(imgFile, gocv.IMReadColor)

	if img.Empty() {
		return fmt.Errorf("error reading image from: %s", imgFile)
	}

	defer img.Close()

	sx, sy := d.scaleFor(img)
	kps, err := readKeypoints(kpFile, d.top.NumberBodyParts, sx, sy)

	if err != nil {
		return err
	}

	start := time.Now()

	out, res, err := d.RenderFrame(ctx, img, kps)

	if err != nil {
		return err
	}

	defer out.Close()

	log.Printf("Rendered element %d (%s) for %d people in %s\n", res.Element, res.Label,
		kps.People, time.Since(start))

	if ok := gocv.IMWrite(saveFile, out); !ok {
		return fmt.Errorf("failed to save the image")
	}

	log.Printf("Saved rendered result to %s\n", saveFile)

	return nil
}

// videoFrame is a buffered video frame and its keypoints
type videoFrame struct {
	img       gocv.Mat
	keypoints pose.KeypointSet
}

// bufferVideo reads the video frames and their keypoints, frames without a
// keypoint file are rendered without people
func (d *Demo) bufferVideo(vidFile, kpFile string) ([]videoFrame, error) {

	video, err := gocv.VideoCaptureFile(vidFile)

	if err != nil {
		return nil, err
	}

	defer video.Close()

	files, err := keypointFiles(kpFile)

	if err != nil {
		return nil, fmt.Errorf("error listing keypoints: %w", err)
	}

	frames := make([]videoFrame, 0)

	for {
		img := gocv.NewMat()

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			img.Close()
			break
		}

		if img.Empty() {
			img.Close()
			continue
		}

		frame := videoFrame{img: img}

		if n := len(frames); n < len(files) {
			sx, sy := d.scaleFor(img)
			frame.keypoints, err = readKeypoints(files[n], d.top.NumberBodyParts, sx, sy)

			if err != nil {
				return nil, err
			}
		}

		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames read from %s", vidFile)
	}

	return frames, nil
}

// Stream returns the HTTP handler streaming the rendered video as MJPEG
func (d *Demo) Stream(frames []videoFrame) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		log.Printf("New client connection established\n")

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

		// pointer to position in video buffer
		frameNum := -1

		ticker := time.NewTicker(FPSinterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Printf("Client disconnected\n")
				return

			// simulate reading a 30FPS web camera
			case <-ticker.C:

				frameNum++
				if frameNum > len(frames)-1 {
					frameNum = 0
				}

				out, _, err := d.RenderFrame(r.Context(), frames[frameNum].img,
					frames[frameNum].keypoints)

				if err != nil {
					log.Printf("Error occured rendering frame: %v", err)
					continue
				}

				buf, err := gocv.IMEncode(gocv.JPEGFileExt, out)
				out.Close()

				if err != nil {
					log.Printf("Error encoding frame: %v", err)
					continue
				}

				// write the image to the response writer
				w.Write([]byte("--frame\r\n"))
				w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
				w.Write(buf.GetBytes())
				w.Write([]byte("\r\n"))

				buf.Close()

				// flush the buffer
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}
			}
		}
	}
}

// Close stops the render thread
func (d *Demo) Close() error {
	return d.worker.Stop()
}

// parseLevel maps the log flag to a slog level
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	cfgFile := flag.String("c", "", "YAML or TOML config file, watched for changes")
	imgFile := flag.String("i", "../data/person.jpg", "Image file to render keypoints on")
	vidFile := flag.String("v", "", "Video file to render keypoints on, streamed over HTTP")
	kpFile := flag.String("k", "../data/person_keypoints.json", "OpenPose keypoint JSON file, or directory of per frame files for video")
	heatMapsFile := flag.String("m", "", "Raw float16 network heatmaps to render")
	saveFile := flag.String("o", "../data/person-out.jpg", "The output JPG file with rendered poses")
	element := flag.Int("e", -1, "Element to render, overrides the config")
	scale := flag.Float64("s", 0, "Scale from heatmaps to output, 0 fits the output width")
	httpAddr := flag.String("a", "localhost:8080", "HTTP Address to stream video on, format address:port")
	rkPlatform := flag.String("p", "", "Rockchip platform to pin the render thread to fast cores [rk3562|rk3566|rk3568|rk3576|rk3582|rk3588]")
	bitmapText := flag.Bool("b", false, "Draw the element label with the bitmap font")
	logLevel := flag.String("log", "info", "Log level [debug|info|warn|error]")

	flag.Parse()

	level, err := parseLevel(*logLevel)

	if err != nil {
		log.Fatalf("Invalid log level %q: %v", *logLevel, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	poserender.SetLogger(logger)

	cfg := config.Default()

	if *cfgFile != "" {
		cfg, err = config.Load(*cfgFile)

		if err != nil {
			log.Fatal("Error loading config: ", err)
		}
	}

	if *element >= 0 {
		cfg.ElementToRender = *element
	}

	if *rkPlatform != "" && len(cfg.CPUCores) == 0 {
		cfg.CPUCores, err = poserender.PlatformCores(strings.ToLower(*rkPlatform), poserender.FastCores)

		if err != nil {
			log.Printf("Failed to get platform cores: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	demo, err := NewDemo(ctx, cfg, *heatMapsFile, float32(*scale))

	if err != nil {
		log.Fatalf("Error creating demo: %v", err)
	}

	if *bitmapText {
		demo.font = render.BitmapFont()
	}

	defer func() {
		if err := demo.Close(); err != nil {
			log.Printf("Error stopping render thread: %v", err)
		}
	}()

	if cfg.Listen != "" {
		srv := control.NewServer(demo.renderer)
		srv.SetLogger(logger)

		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
				log.Printf("Control endpoint stopped: %v", err)
			}
		}()

		log.Printf("Control renderer over websocket at ws://%s/ws\n", cfg.Listen)
	}

	if *cfgFile != "" {
		watcher, err := control.NewWatcher(*cfgFile, demo.renderer)

		if err != nil {
			log.Printf("Config changes will not be applied: %v", err)
		} else {
			watcher.SetLogger(logger)
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	if *vidFile == "" {
		if err := demo.RenderImage(ctx, *imgFile, *kpFile, *saveFile); err != nil {
			log.Printf("Error rendering image: %v", err)
			return
		}

		log.Println("done")
		return
	}

	frames, err := demo.bufferVideo(*vidFile, *kpFile)

	if err != nil {
		log.Printf("Error buffering video: %v", err)
		return
	}

	defer func() {
		for _, f := range frames {
			f.img.Close()
		}
	}()

	http.HandleFunc("/stream", demo.Stream(frames))

	srv := &http.Server{Addr: *httpAddr, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	// start http server
	log.Printf("Open browser and view video at http://%s/stream\n", *httpAddr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
	}
}

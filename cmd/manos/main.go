// Command manos is an interactive demo of the gesture-audio engine. Keyboard
// keys move a synthetic hand whose features drive the active mappings while
// the processed signal streams to the default audio device.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/eiannone/keyboard"

	"github.com/MariaGuerraSappho/manos/engine"
	"github.com/MariaGuerraSappho/manos/gesture"
	"github.com/MariaGuerraSappho/manos/governor"
	"github.com/MariaGuerraSappho/manos/store"
)

const frameInterval = 33 * time.Millisecond

// engineStream adapts stereo engine blocks to the byte stream oto pulls.
// Samples are interleaved little-endian float32, 8 bytes per stereo frame.
type engineStream struct {
	mu    sync.Mutex
	eng   *engine.Engine
	left  []float64
	right []float64
}

func (s *engineStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float64, frames)
		s.right = make([]float64, frames)
	}

	s.left = s.left[:frames]
	s.right = s.right[:frames]
	s.eng.RenderStereo(s.left, s.right)

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(float32(s.left[i])))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(float32(s.right[i])))
	}

	return frames * 8, nil
}

// hand is the synthetic gesture state steered from the keyboard.
type hand struct {
	present   bool
	height    float64
	spread    float64
	proximity float64
	positionX float64
	curl      float64
}

func (h *hand) frame() *gesture.Frame {
	if !h.present {
		return nil
	}

	return gesture.NewFrame(map[gesture.Feature]float64{
		gesture.Height:      h.height,
		gesture.Spread:      h.spread,
		gesture.Proximity:   h.proximity,
		gesture.PositionX:   h.positionX,
		gesture.OverallCurl: h.curl,
		gesture.ThumbCurl:   h.curl,
		gesture.IndexCurl:   h.curl,
		gesture.MiddleCurl:  h.curl,
		gesture.RingCurl:    h.curl,
		gesture.PinkyCurl:   h.curl,
	})
}

func nudge(v *float64, by float64) {
	*v += by
	if *v < 0 {
		*v = 0
	}

	if *v > 1 {
		*v = 1
	}
}

type keyEvent struct {
	ch  rune
	key keyboard.Key
}

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "output sample rate in Hz")
	toneFreq := flag.Float64("tone", 220, "test tone frequency in Hz")
	chaos := flag.Float64("chaos", 0.6, "mapping generation chaos in [0,1]")
	baseline := flag.Float64("volume", -10, "baseline output level in dB")
	mix := flag.Float64("mix", 1, "dry/wet mix in [0,1]")
	storePath := flag.String("store", "", "mapping set store file (optional)")
	flag.Parse()

	logger := log.New(os.Stderr, "manos: ", log.LstdFlags)

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithNotifier(governor.NotifierFunc(func(level governor.Level, reason string) {
			logger.Printf("performance level -> %s (%s)", level, reason)
		})),
	}

	if *storePath != "" {
		fs, err := store.NewFileStore(*storePath)
		if err != nil {
			log.Fatal(err)
		}

		opts = append(opts, engine.WithStore(fs))
	}

	eng, err := engine.New(float64(*sampleRate), opts...)
	if err != nil {
		log.Fatal(err)
	}

	if err := eng.SetSourceTone(*toneFreq, float64(*sampleRate)); err != nil {
		log.Fatal(err)
	}

	eng.SetBaselineVolume(*baseline)
	eng.SetDryWetMix(*mix)
	eng.GenerateMappings(*chaos)

	if err := eng.Play(); err != nil {
		log.Fatal(err)
	}

	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		log.Fatal(err)
	}
	<-ready

	player := octx.NewPlayer(&engineStream{eng: eng})
	defer player.Close()
	player.Play()

	if err := keyboard.Open(); err != nil {
		log.Fatal(err)
	}
	defer keyboard.Close()

	events := make(chan keyEvent)
	go func() {
		defer close(events)
		for {
			ch, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			events <- keyEvent{ch: ch, key: key}
		}
	}()

	fmt.Println("manos interactive demo")
	fmt.Println("  space      show/hide hand")
	fmt.Println("  up/down    height        w/s  proximity")
	fmt.Println("  left/right position      a/d  spread")
	fmt.Println("  c/v        curl          g    new mappings")
	fmt.Println("  [/]        chaos         m    print mappings")
	fmt.Println("  p          play/stop     q    quit")
	fmt.Println()
	fmt.Println(eng.MappingsDescription())

	h := hand{present: true, height: 0.5, spread: 0.5, proximity: 0.5, positionX: 0.5}
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			eng.ProcessFrame(h.frame())

			if !eng.CheckHealth() && !eng.Recover() {
				logger.Print("audio path unrecoverable, exiting")

				return
			}

		case ev, ok := <-events:
			if !ok {
				return
			}

			switch {
			case ev.key == keyboard.KeyEsc || ev.key == keyboard.KeyCtrlC || ev.ch == 'q':
				return
			case ev.key == keyboard.KeySpace:
				h.present = !h.present
				if h.present {
					fmt.Println("hand visible")
				} else {
					fmt.Println("hand hidden")
				}
			case ev.key == keyboard.KeyArrowUp:
				nudge(&h.height, 0.05)
			case ev.key == keyboard.KeyArrowDown:
				nudge(&h.height, -0.05)
			case ev.key == keyboard.KeyArrowLeft:
				nudge(&h.positionX, -0.05)
			case ev.key == keyboard.KeyArrowRight:
				nudge(&h.positionX, 0.05)
			case ev.ch == 'w':
				nudge(&h.proximity, 0.05)
			case ev.ch == 's':
				nudge(&h.proximity, -0.05)
			case ev.ch == 'a':
				nudge(&h.spread, -0.05)
			case ev.ch == 'd':
				nudge(&h.spread, 0.05)
			case ev.ch == 'c':
				nudge(&h.curl, 0.05)
			case ev.ch == 'v':
				nudge(&h.curl, -0.05)
			case ev.ch == '[':
				*chaos -= 0.1
				if *chaos < 0 {
					*chaos = 0
				}
				fmt.Printf("chaos %.1f\n", *chaos)
			case ev.ch == ']':
				*chaos += 0.1
				if *chaos > 1 {
					*chaos = 1
				}
				fmt.Printf("chaos %.1f\n", *chaos)
			case ev.ch == 'g':
				eng.GenerateMappings(*chaos)
				fmt.Println(eng.MappingsDescription())
			case ev.ch == 'm':
				fmt.Println(eng.MappingsDescription())
			case ev.ch == 'p':
				if eng.Playing() {
					eng.Stop()
					fmt.Println("stopped")
				} else if err := eng.Play(); err != nil {
					logger.Printf("play: %v", err)
				} else {
					fmt.Println("playing")
				}
			}
		}
	}
}

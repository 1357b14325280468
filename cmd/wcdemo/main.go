// Command wcdemo is a small CLI demonstrating the gowebcodecs polyfill
// end to end: it demuxes a media file with astiav (the same
// AllocFormatContext/OpenInput/FindStreamInfo/ReadFrame shape the
// teacher's openAndDecode uses), feeds each packet into a VideoDecoder
// and/or AudioDecoder, re-encodes every decoded frame with a
// VideoEncoder/AudioEncoder, and logs a running summary of both sides.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	astiav "github.com/asticode/go-astiav"

	webcodecs "github.com/e1z0/gowebcodecs"
	"github.com/e1z0/gowebcodecs/internal/wclog"
)

// codecIdentifierFor maps an astiav.CodecID back to the WebCodecs
// string identifier backend.Resolve expects, covering the same set of
// backend names defaultBackendNames carries in identify.go.
func codecIdentifierFor(id astiav.CodecID) (string, error) {
	switch id {
	case astiav.CodecIDFlac:
		return "flac", nil
	case astiav.CodecIDOpus:
		return "opus", nil
	case astiav.CodecIDVorbis:
		return "vorbis", nil
	case astiav.CodecIDAv1:
		return "av01", nil
	case astiav.CodecIDVp9:
		return "vp09", nil
	case astiav.CodecIDVp8:
		return "vp8", nil
	default:
		return "", fmt.Errorf("wcdemo: unsupported stream codec %v", id)
	}
}

func main() {
	input := flag.String("input", "", "media file or URL to demux and decode")
	debugFF := flag.Bool("debugstreams", false, "log ffmpeg's own debug output")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: wcdemo -input <file-or-url>")
		os.Exit(2)
	}

	if *debugFF {
		astiav.SetLogLevel(astiav.LogLevelDebug)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _, msg string) {
			wclog.Printf("ffmpeg: %s (level %d)", strings.TrimSpace(msg), l)
		})
	}

	if err := run(*input); err != nil {
		wclog.Printf("wcdemo: %v", err)
		os.Exit(1)
	}
}

func run(input string) error {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return errors.New("wcdemo: AllocFormatContext returned nil")
	}
	defer fc.Free()

	if err := fc.OpenInput(input, nil, nil); err != nil {
		return fmt.Errorf("wcdemo: OpenInput: %w", err)
	}
	defer fc.CloseInput()
	if err := fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("wcdemo: FindStreamInfo: %w", err)
	}

	vIdx, aIdx := -1, -1
	for i, s := range fc.Streams() {
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if vIdx < 0 {
				vIdx = i
			}
		case astiav.MediaTypeAudio:
			if aIdx < 0 {
				aIdx = i
			}
		}
	}
	if vIdx < 0 && aIdx < 0 {
		return errors.New("wcdemo: no audio or video stream found")
	}

	var videoFrames, audioFrames int
	var videoEncoded, audioEncoded int
	var videoEncodedBytes, audioEncodedBytes int

	// Re-encode targets: vp8/opus are always in defaultBackendNames
	// regardless of the source stream's own codec, so the demo can
	// re-encode any input without needing a matching encoder for every
	// possible decode codec (spec.md §1 Non-goals excludes muxing the
	// result back into a container — this only exercises the encode
	// path and reports what it produced).
	var venc *webcodecs.VideoEncoder
	var aenc *webcodecs.AudioEncoder

	var vdec *webcodecs.VideoDecoder
	if vIdx >= 0 {
		par := fc.Streams()[vIdx].CodecParameters()
		var err error
		venc, err = webcodecs.NewVideoEncoder(webcodecs.VideoEncoderInit{
			Output: func(c *webcodecs.EncodedVideoChunk, _ []byte) {
				videoEncoded++
				if n, err := c.ByteLength(); err == nil {
					videoEncodedBytes += n
				}
			},
			Error: func(err error) { wclog.Printf("video encoder error: %v", err) },
		})
		if err != nil {
			return err
		}
		if err := <-venc.Configure(webcodecs.VideoEncoderConfig{
			Codec:  "vp8",
			Width:  par.Width(),
			Height: par.Height(),
		}); err != nil {
			wclog.Printf("wcdemo: configure video encoder: %v", err)
			venc = nil
		}

		vdec, err = webcodecs.NewVideoDecoder(webcodecs.VideoDecoderInit{
			Output: func(f *webcodecs.VideoFrame) {
				videoFrames++
				defer f.Close()
				wclog.Printf("video frame #%d: %dx%d ts=%dus", videoFrames, f.CodedWidth(), f.CodedHeight(), f.Timestamp())
				if venc != nil {
					if err := venc.Encode(f, webcodecs.VideoEncodeOptions{}); err != nil {
						wclog.Printf("wcdemo: video encode: %v", err)
					}
				}
			},
			Error: func(err error) { wclog.Printf("video decoder error: %v", err) },
		})
		if err != nil {
			return err
		}
		identifier, err := codecIdentifierFor(par.CodecID())
		if err != nil {
			wclog.Printf("wcdemo: skipping video stream: %v", err)
			vdec = nil
		} else if err := <-vdec.Configure(webcodecs.VideoDecoderConfig{
			Codec:       identifier,
			CodedWidth:  par.Width(),
			CodedHeight: par.Height(),
			Description: par.ExtraData(),
		}); err != nil {
			return fmt.Errorf("wcdemo: configure video decoder: %w", err)
		}
	}

	var adec *webcodecs.AudioDecoder
	if aIdx >= 0 {
		par := fc.Streams()[aIdx].CodecParameters()
		var err error
		aenc, err = webcodecs.NewAudioEncoder(webcodecs.AudioEncoderInit{
			Output: func(c *webcodecs.EncodedAudioChunk, _ []byte) {
				audioEncoded++
				if n, err := c.ByteLength(); err == nil {
					audioEncodedBytes += n
				}
			},
			Error: func(err error) { wclog.Printf("audio encoder error: %v", err) },
		})
		if err != nil {
			return err
		}
		if err := <-aenc.Configure(webcodecs.AudioEncoderConfig{
			Codec:            "opus",
			SampleRate:       par.SampleRate(),
			NumberOfChannels: par.ChannelLayout().Channels(),
		}); err != nil {
			wclog.Printf("wcdemo: configure audio encoder: %v", err)
			aenc = nil
		}

		adec, err = webcodecs.NewAudioDecoder(webcodecs.AudioDecoderInit{
			Output: func(ad *webcodecs.AudioData) {
				audioFrames++
				defer ad.Close()
				wclog.Printf("audio frame #%d: %d frames @ %.0fHz ts=%dus", audioFrames, ad.NumberOfFrames(), ad.SampleRate(), ad.Timestamp())
				if aenc != nil {
					if err := aenc.Encode(ad); err != nil {
						wclog.Printf("wcdemo: audio encode: %v", err)
					}
				}
			},
			Error: func(err error) { wclog.Printf("audio decoder error: %v", err) },
		})
		if err != nil {
			return err
		}
		identifier, err := codecIdentifierFor(par.CodecID())
		if err != nil {
			wclog.Printf("wcdemo: skipping audio stream: %v", err)
			adec = nil
		} else if err := <-adec.Configure(webcodecs.AudioDecoderConfig{
			Codec:            identifier,
			SampleRate:       par.SampleRate(),
			NumberOfChannels: par.ChannelLayout().Channels(),
			Description:      par.ExtraData(),
		}); err != nil {
			return fmt.Errorf("wcdemo: configure audio decoder: %w", err)
		}
	}

	pkt := astiav.AllocPacket()
	defer pkt.Free()

	start := time.Now()
	for {
		if err := fc.ReadFrame(pkt); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("wcdemo: ReadFrame: %w", err)
		}

		data := pkt.Data()
		if len(data) > 0 {
			switch {
			case vdec != nil && pkt.StreamIndex() == vIdx:
				typ := webcodecs.ChunkDelta
				if pkt.Flags()&astiav.PacketFlagKey != 0 {
					typ = webcodecs.ChunkKey
				}
				tb := fc.Streams()[vIdx].TimeBase()
				ts := rescaleToUS(pkt.Pts(), tb)
				chunk, err := webcodecs.NewEncodedVideoChunk(typ, ts, nil, data, false)
				if err == nil {
					_ = vdec.Decode(chunk)
				}
			case adec != nil && pkt.StreamIndex() == aIdx:
				tb := fc.Streams()[aIdx].TimeBase()
				ts := rescaleToUS(pkt.Pts(), tb)
				chunk, err := webcodecs.NewEncodedAudioChunk(webcodecs.ChunkKey, ts, nil, data, false)
				if err == nil {
					_ = adec.Decode(chunk)
				}
			}
		}
		pkt.Unref()
	}

	if vdec != nil {
		<-vdec.Flush()
		vdec.Close()
	}
	if adec != nil {
		<-adec.Flush()
		adec.Close()
	}
	if venc != nil {
		<-venc.Flush()
		venc.Close()
	}
	if aenc != nil {
		<-aenc.Flush()
		aenc.Close()
	}

	wclog.Printf("done in %s: decoded %d video frames / %d audio frames, re-encoded %d video chunks (%d bytes) / %d audio chunks (%d bytes)",
		time.Since(start), videoFrames, audioFrames, videoEncoded, videoEncodedBytes, audioEncoded, audioEncodedBytes)
	return nil
}

func rescaleToUS(pts int64, tb astiav.Rational) int64 {
	if tb.Denominator() == 0 {
		return 0
	}
	return pts * int64(tb.Numerator()) * 1_000_000 / int64(tb.Denominator())
}

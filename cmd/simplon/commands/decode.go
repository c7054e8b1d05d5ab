// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"unicode"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/simplon-foundation/simplon/cmd/simplon/cli"
	"github.com/simplon-foundation/simplon/lib/codec"
	"github.com/simplon-foundation/simplon/lib/stream"
)

type decodeOptions struct {
	hex         bool
	diag        bool
	materialize bool
}

func decodeCommand() *cli.Command {
	var options decodeOptions
	return &cli.Command{
		Name:    "decode",
		Summary: "Summarize stream messages as YAML",
		Usage:   "simplon decode [flags] [file]",
		Description: `Decode detector stream messages from a file or stdin and print one YAML
document per message. The input may hold several messages back to back.

Pixel arrays are summarized by shape, element type and compression.
With --materialize every array is also decompressed and its size
checked. With --diag the raw CBOR diagnostic notation is printed
instead.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			flagSet.BoolVarP(&options.hex, "hex", "x", false, "treat input as hex-encoded CBOR")
			flagSet.BoolVar(&options.diag, "diag", false, "print CBOR diagnostic notation")
			flagSet.BoolVar(&options.materialize, "materialize", false, "decompress every array")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Summarize a captured image message",
				Command:     "simplon decode image-000001.cbor",
			},
			{
				Description: "Check that every frame of a capture decompresses",
				Command:     "simplon decode --materialize series.cbor",
			},
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("decode takes at most one file, got %d arguments", len(args))
			}
			data, err := readInput(args, options.hex)
			if err != nil {
				return err
			}
			return decodeMessages(data, os.Stdout, options)
		},
	}
}

// readInput reads the named file, or stdin when args is empty.
func readInput(args []string, hexMode bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if hexMode {
		return decodeHexInput(data)
	}
	return data, nil
}

// decodeHexInput strips whitespace and decodes hex to binary.
func decodeHexInput(data []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, data)
	decoded := make([]byte, hex.DecodedLen(len(cleaned)))
	count, err := hex.Decode(decoded, cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded[:count], nil
}

// decodeMessages splits data into CBOR items and writes one summary
// per message.
func decodeMessages(data []byte, w io.Writer, options decodeOptions) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected a stream message")
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	for offset := 0; offset < len(data); {
		length, err := codec.Skip(data[offset:])
		if err != nil {
			return fmt.Errorf("message at byte %d: %w", offset, err)
		}
		item := data[offset : offset+length]

		if options.diag {
			notation, err := codec.Diagnose(item)
			if err != nil {
				return fmt.Errorf("message at byte %d: %w", offset, err)
			}
			fmt.Fprintln(w, notation)
		} else {
			message, err := stream.Decode(item)
			if err != nil {
				return fmt.Errorf("message at byte %d: %w", offset, err)
			}
			summary, err := summarize(message, options.materialize)
			if err != nil {
				return fmt.Errorf("message at byte %d: %w", offset, err)
			}
			if err := encoder.Encode(summary); err != nil {
				return err
			}
		}
		offset += length
	}
	return encoder.Close()
}

type messageSummary struct {
	Type     stream.MessageType `yaml:"type"`
	SeriesID uint64             `yaml:"series_id"`
	UniqueID string             `yaml:"series_unique_id,omitempty"`

	Start *startSummary `yaml:"start,omitempty"`
	Image *imageSummary `yaml:"image,omitempty"`
}

type startSummary struct {
	Detector        string             `yaml:"detector,omitempty"`
	SerialNumber    string             `yaml:"serial_number,omitempty"`
	ArmDate         string             `yaml:"arm_date,omitempty"`
	Images          uint64             `yaml:"number_of_images"`
	Size            [2]uint64          `yaml:"image_size,flow"`
	DType           string             `yaml:"image_dtype,omitempty"`
	CountTime       float64            `yaml:"count_time"`
	FrameTime       float64            `yaml:"frame_time"`
	Energy          float64            `yaml:"incident_energy,omitempty"`
	Channels        []string           `yaml:"channels,omitempty,flow"`
	ThresholdEnergy map[string]float64 `yaml:"threshold_energy,omitempty"`
	Flatfield       []arraySummary     `yaml:"flatfield,omitempty"`
	PixelMask       []arraySummary     `yaml:"pixel_mask,omitempty"`
	UserData        any                `yaml:"user_data,omitempty"`
}

type imageSummary struct {
	ImageID   uint64         `yaml:"image_id"`
	StartTime float64        `yaml:"start_time_s"`
	StopTime  float64        `yaml:"stop_time_s"`
	RealTime  float64        `yaml:"real_time_s"`
	Data      []arraySummary `yaml:"data"`
	UserData  any            `yaml:"user_data,omitempty"`
}

type arraySummary struct {
	Channel     string    `yaml:"channel"`
	Dims        [2]uint64 `yaml:"dims,flow"`
	Element     string    `yaml:"element"`
	Compression string    `yaml:"compression,omitempty"`
	Stored      int       `yaml:"stored_bytes"`
	Size        int       `yaml:"bytes"`
	Verified    bool      `yaml:"verified,omitempty"`
}

func summarize(message stream.Message, materialize bool) (messageSummary, error) {
	series := message.Identity()
	summary := messageSummary{
		Type:     message.Type(),
		SeriesID: series.ID,
		UniqueID: series.UniqueID,
	}

	var err error
	switch message := message.(type) {
	case *stream.Start:
		start := &startSummary{
			Detector:        message.DetectorDescription,
			SerialNumber:    message.DetectorSerialNumber,
			ArmDate:         message.ArmDate,
			Images:          message.NumberOfImages,
			Size:            [2]uint64{message.ImageSizeX, message.ImageSizeY},
			DType:           message.ImageDType,
			CountTime:       message.CountTime,
			FrameTime:       message.FrameTime,
			Energy:          message.IncidentEnergy,
			Channels:        message.Channels,
			ThresholdEnergy: message.ThresholdEnergy,
		}
		if start.Flatfield, err = summarizeArrays(message.Flatfield, materialize); err != nil {
			return summary, fmt.Errorf("flatfield: %w", err)
		}
		if start.PixelMask, err = summarizeArrays(message.PixelMask, materialize); err != nil {
			return summary, fmt.Errorf("pixel_mask: %w", err)
		}
		if start.UserData, err = decodeUserData(message.UserData); err != nil {
			return summary, err
		}
		summary.Start = start
	case *stream.Image:
		image := &imageSummary{
			ImageID:   message.ImageID,
			StartTime: message.StartTime.Seconds(),
			StopTime:  message.StopTime.Seconds(),
			RealTime:  message.RealTime.Seconds(),
		}
		if image.Data, err = summarizeArrays(message.Data, materialize); err != nil {
			return summary, fmt.Errorf("data: %w", err)
		}
		if image.UserData, err = decodeUserData(message.UserData); err != nil {
			return summary, err
		}
		summary.Image = image
	}
	return summary, nil
}

// summarizeArrays describes each channel's array in channel order.
func summarizeArrays(arrays map[string]stream.MultiDimArray, materialize bool) ([]arraySummary, error) {
	channels := make([]string, 0, len(arrays))
	for channel := range arrays {
		channels = append(channels, channel)
	}
	slices.Sort(channels)

	summaries := make([]arraySummary, 0, len(arrays))
	for _, channel := range channels {
		array := arrays[channel]
		data := array.Array.Data
		summary := arraySummary{
			Channel: channel,
			Dims:    array.Dims,
			Element: array.Array.Element.String(),
			Stored:  data.View.Len(),
			Size:    data.Size(),
		}
		if data.Compression != nil {
			summary.Compression = data.Compression.Algorithm
		}
		if materialize {
			if _, err := array.Materialize(); err != nil {
				return nil, fmt.Errorf("%s: %w", channel, err)
			}
			summary.Verified = true
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func decodeUserData(userData stream.UserData) (any, error) {
	if userData.IsEmpty() {
		return nil, nil
	}
	var decoded any
	if err := userData.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("user_data: %w", err)
	}
	return decoded, nil
}

// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "bytes"

// selfDescribed is tag 55799 (RFC 8949 §3.4.6), the preamble of every
// stream message.
var selfDescribed = []byte{0xd9, 0xd9, 0xf7}

// Decode parses one stream message. The returned message may hold
// Views into buffer and is valid only while buffer is alive and
// unmodified. On error the message is nil.
func Decode(buffer []byte) (Message, error) {
	if !bytes.HasPrefix(buffer, selfDescribed) {
		return nil, ErrSignature
	}
	r := &reader{data: buffer, position: len(selfDescribed)}

	entries, err := r.openMap()
	if err != nil {
		return nil, err
	}
	more, err := entries.more()
	if err != nil {
		return nil, err
	}
	if !more {
		return nil, parseError("empty message map")
	}
	key, _, err := r.readKey()
	if err != nil {
		return nil, err
	}
	if key != "type" {
		return nil, parseError("first key is %q, expected \"type\"", key)
	}
	messageType, err := r.readText()
	if err != nil {
		return nil, fieldError("type", err)
	}

	var message Message
	switch MessageType(messageType) {
	case TypeStart:
		message, err = decodeStart(r, entries)
	case TypeImage:
		message, err = decodeImage(r, entries)
	case TypeEnd:
		message, err = decodeEnd(r, entries)
	default:
		return nil, parseError("unknown message type %q", messageType)
	}
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, decodeError("%d trailing bytes after message", r.remaining())
	}
	return message, nil
}

// fieldFunc decodes the value of one recognized key.
type fieldFunc func(r *reader, key string) error

// decodeFields iterates the remaining map entries, passing each key to
// decode. Keys too long to name a field are skipped with their values.
func decodeFields(r *reader, entries *container, decode fieldFunc) error {
	for {
		more, err := entries.more()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		key, known, err := r.readKey()
		if err != nil {
			return err
		}
		if !known {
			if err := r.skip(); err != nil {
				return err
			}
			continue
		}
		if err := decode(r, key); err != nil {
			return fieldError(key, err)
		}
	}
}

// decodeSeries handles the identity keys shared by every message type.
// It reports whether key was one of them.
func decodeSeries(r *reader, key string, series *Series) (bool, error) {
	var err error
	switch key {
	case "series_id":
		series.ID, err = r.readUint()
	case "series_unique_id":
		series.UniqueID, err = r.readText()
	default:
		return false, nil
	}
	return true, err
}

func decodeStart(r *reader, entries *container) (*Start, error) {
	start := &Start{}
	err := decodeFields(r, entries, func(r *reader, key string) error {
		if handled, err := decodeSeries(r, key, &start.Series); handled {
			return err
		}
		var err error
		switch key {
		case "arm_date":
			start.ArmDate, err = r.readText()
		case "beam_center_x":
			start.BeamCenterX, err = r.readFloat()
		case "beam_center_y":
			start.BeamCenterY, err = r.readFloat()
		case "channels":
			start.Channels, err = r.readTextArray()
		case "count_time":
			start.CountTime, err = r.readFloat()
		case "countrate_correction_enabled":
			start.CountrateCorrectionEnabled, err = r.readBool()
		case "countrate_correction_lookup_table":
			var table TypedArray
			table, err = r.readTypedArray()
			start.CountrateCorrectionLookupTable = &table
		case "detector_description":
			start.DetectorDescription, err = r.readText()
		case "detector_serial_number":
			start.DetectorSerialNumber, err = r.readText()
		case "detector_translation":
			start.DetectorTranslation, err = r.readFloatArray()
		case "flatfield":
			start.Flatfield, err = r.readChannelArrays()
		case "flatfield_enabled":
			start.FlatfieldEnabled, err = r.readBool()
		case "frame_time":
			start.FrameTime, err = r.readFloat()
		case "goniometer":
			start.Goniometer, err = r.readGoniometer()
		case "image_dtype":
			start.ImageDType, err = r.readText()
		case "image_size_x":
			start.ImageSizeX, err = r.readUint()
		case "image_size_y":
			start.ImageSizeY, err = r.readUint()
		case "incident_energy":
			start.IncidentEnergy, err = r.readFloat()
		case "incident_wavelength":
			start.IncidentWavelength, err = r.readFloat()
		case "number_of_images":
			start.NumberOfImages, err = r.readUint()
		case "pixel_mask":
			start.PixelMask, err = r.readChannelArrays()
		case "pixel_mask_enabled":
			start.PixelMaskEnabled, err = r.readBool()
		case "pixel_size_x":
			start.PixelSizeX, err = r.readFloat()
		case "pixel_size_y":
			start.PixelSizeY, err = r.readFloat()
		case "saturation_value":
			start.SaturationValue, err = r.readUint()
		case "sensor_material":
			start.SensorMaterial, err = r.readText()
		case "sensor_thickness":
			start.SensorThickness, err = r.readFloat()
		case "threshold_energy":
			start.ThresholdEnergy, err = r.readChannelFloats()
		case "user_data":
			start.UserData.Raw, err = r.raw()
		case "virtual_pixel_interpolation_enabled":
			start.VirtualPixelInterpolationEnabled, err = r.readBool()
		default:
			err = r.skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return start, nil
}

func decodeImage(r *reader, entries *container) (*Image, error) {
	image := &Image{}
	err := decodeFields(r, entries, func(r *reader, key string) error {
		if handled, err := decodeSeries(r, key, &image.Series); handled {
			return err
		}
		var err error
		switch key {
		case "image_id":
			image.ImageID, err = r.readUint()
		case "real_time":
			image.RealTime, err = r.readUintPair()
		case "series_date":
			image.SeriesDate, err = r.readText()
		case "start_time":
			image.StartTime, err = r.readUintPair()
		case "stop_time":
			image.StopTime, err = r.readUintPair()
		case "user_data":
			image.UserData.Raw, err = r.raw()
		case "data":
			image.Data, err = r.readChannelArrays()
		default:
			err = r.skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func decodeEnd(r *reader, entries *container) (*End, error) {
	end := &End{}
	err := decodeFields(r, entries, func(r *reader, key string) error {
		if handled, err := decodeSeries(r, key, &end.Series); handled {
			return err
		}
		return r.skip()
	})
	if err != nil {
		return nil, err
	}
	return end, nil
}

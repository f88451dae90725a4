package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/pkg/timestamp"
	"github.com/iascore/alarmcore/value"
)

// Encode renders v as the §6 wire JSON object. Absent optional timestamps,
// an absent dependent-set and absent properties are omitted, never emitted
// as null or empty.
func Encode(v value.Value) ([]byte, error) {
	payload, err := formatPayload(v.TypeTag(), v.Payload())
	if err != nil {
		return nil, errors.WrapInvalid(err, "codec", "Encode", "format payload")
	}

	ts := v.Timestamps()
	w := wireValue{
		FullRunningID:             v.ID().FullRunningID(),
		ValueType:                 v.TypeTag().String(),
		Value:                     payload,
		Mode:                      v.Mode().String(),
		IASValidity:               v.Validity().String(),
		PluginProductionTStamp:    timestamp.Format(ts.PluginProduced),
		SentToConverterTStamp:     timestamp.Format(ts.SentToConverter),
		ReceivedFromPluginTStamp:  timestamp.Format(ts.ReceivedFromPlugin),
		ConvertedProductionTStamp: timestamp.Format(ts.ConverterProduced),
		SentToBsdbTStamp:          timestamp.Format(ts.SentToBus),
		ReadFromBsdbTStamp:        timestamp.Format(ts.ReadFromBus),
		DasuProductionTStamp:      timestamp.Format(ts.DUProduced),
		DepsFullRunningIDs:        v.Dependents(),
		Props:                     v.Properties(),
	}

	out, err := json.Marshal(w)
	if err != nil {
		return nil, errors.WrapFatal(err, "codec", "Encode", "marshal wire object")
	}
	return out, nil
}

// Decode parses the §6 wire JSON object back into a Value.
func Decode(data []byte) (value.Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return value.Value{}, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrMalformedWire, err), "codec", "Decode", "unmarshal wire object")
	}

	id, err := identifier.ParseFullRunningID(w.FullRunningID)
	if err != nil {
		return value.Value{}, errors.WrapInvalid(err, "codec", "Decode", "parse fullRunningId")
	}

	tag, ok := value.ParseTypeTag(w.ValueType)
	if !ok {
		return value.Value{}, errors.WrapInvalid(errors.ErrUnknownTypeTag, "codec", "Decode", "parse valueType")
	}

	payload, err := parsePayload(tag, w.Value)
	if err != nil {
		return value.Value{}, errors.WrapInvalid(err, "codec", "Decode", "parse value")
	}

	mode, ok := value.ParseMode(w.Mode)
	if !ok {
		return value.Value{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "Decode", "parse mode")
	}

	validity, ok := value.ParseValidity(w.IASValidity)
	if !ok {
		return value.Value{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "Decode", "parse iasValidity")
	}

	ts, err := parseTimestamps(w)
	if err != nil {
		return value.Value{}, errors.WrapInvalid(err, "codec", "Decode", "parse timestamps")
	}

	opts := []value.Option{value.WithTimestamps(ts)}
	if len(w.DepsFullRunningIDs) > 0 {
		opts = append(opts, value.WithDependents(w.DepsFullRunningIDs...))
	}
	if len(w.Props) > 0 {
		opts = append(opts, value.WithProperties(w.Props))
	}

	v, err := value.New(id, tag, payload, mode, validity, opts...)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func parseTimestamps(w wireValue) (value.Timestamps, error) {
	var ts value.Timestamps
	fields := []struct {
		dst *time.Time
		src string
	}{
		{&ts.PluginProduced, w.PluginProductionTStamp},
		{&ts.SentToConverter, w.SentToConverterTStamp},
		{&ts.ReceivedFromPlugin, w.ReceivedFromPluginTStamp},
		{&ts.ConverterProduced, w.ConvertedProductionTStamp},
		{&ts.SentToBus, w.SentToBsdbTStamp},
		{&ts.ReadFromBus, w.ReadFromBsdbTStamp},
		{&ts.DUProduced, w.DasuProductionTStamp},
	}
	for _, f := range fields {
		t, err := timestamp.Parse(f.src)
		if err != nil {
			return value.Timestamps{}, fmt.Errorf("%w: %v", errors.ErrMalformedWire, err)
		}
		*f.dst = t
	}
	return ts, nil
}

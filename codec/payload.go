package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/pkg/timestamp"
	"github.com/iascore/alarmcore/value"
)

// formatPayload renders a typed payload as the §6 "string representation":
// arrays are comma-separated, BOOLEAN is "true"/"false", TIMESTAMP uses the
// same wire layout as the processing-hop timestamps.
func formatPayload(tag value.TypeTag, payload any) (string, error) {
	switch tag {
	case value.Long:
		return strconv.FormatInt(payload.(int64), 10), nil
	case value.Int:
		return strconv.FormatInt(int64(payload.(int32)), 10), nil
	case value.Short:
		return strconv.FormatInt(int64(payload.(int16)), 10), nil
	case value.Byte:
		return strconv.FormatInt(int64(payload.(int8)), 10), nil
	case value.Double:
		return strconv.FormatFloat(payload.(float64), 'g', -1, 64), nil
	case value.Float:
		return strconv.FormatFloat(float64(payload.(float32)), 'g', -1, 32), nil
	case value.Boolean:
		if payload.(bool) {
			return "true", nil
		}
		return "false", nil
	case value.Char:
		return string(payload.(rune)), nil
	case value.String:
		return payload.(string), nil
	case value.Alarm:
		return payload.(value.AlarmPriority).String(), nil
	case value.Timestamp:
		return timestamp.Format(payload.(time.Time)), nil
	case value.ArrayOfLong:
		parts := make([]string, len(payload.([]int64)))
		for i, n := range payload.([]int64) {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ","), nil
	case value.ArrayOfDouble:
		parts := make([]string, len(payload.([]float64)))
		for i, f := range payload.([]float64) {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", errors.ErrUnknownTypeTag
	}
}

// parsePayload reverses formatPayload, selecting the parser by tag.
func parsePayload(tag value.TypeTag, s string) (any, error) {
	switch tag {
	case value.Long:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, wrapParseErr(err)
	case value.Int:
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), wrapParseErr(err)
	case value.Short:
		n, err := strconv.ParseInt(s, 10, 16)
		return int16(n), wrapParseErr(err)
	case value.Byte:
		n, err := strconv.ParseInt(s, 10, 8)
		return int8(n), wrapParseErr(err)
	case value.Double:
		f, err := strconv.ParseFloat(s, 64)
		return f, wrapParseErr(err)
	case value.Float:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), wrapParseErr(err)
	case value.Boolean:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, errors.ErrMalformedWire
		}
	case value.Char:
		r := []rune(s)
		if len(r) != 1 {
			return nil, errors.ErrMalformedWire
		}
		return r[0], nil
	case value.String:
		return s, nil
	case value.Alarm:
		p, ok := value.ParseAlarmPriority(s)
		if !ok {
			return nil, errors.ErrMalformedWire
		}
		return p, nil
	case value.Timestamp:
		t, err := timestamp.Parse(s)
		return t, wrapParseErr(err)
	case value.ArrayOfLong:
		if s == "" {
			return []int64{}, nil
		}
		fields := strings.Split(s, ",")
		out := make([]int64, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
			if err != nil {
				return nil, wrapParseErr(err)
			}
			out[i] = n
		}
		return out, nil
	case value.ArrayOfDouble:
		if s == "" {
			return []float64{}, nil
		}
		fields := strings.Split(s, ",")
		out := make([]float64, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, wrapParseErr(err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, errors.ErrUnknownTypeTag
	}
}

func wrapParseErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.ErrMalformedWire
}

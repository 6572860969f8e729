package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Millis is a timestamp normalized to Unix milliseconds. Candidate documents
// were written by several clients over time, so the same field may hold a
// BSON datetime, a BSON timestamp, raw numeric milliseconds, an RFC3339
// string or an exported {seconds, nanoseconds} object. Zero means absent.
type Millis int64

// MillisFromTime converts t to Millis; the zero time maps to 0.
func MillisFromTime(t time.Time) Millis {
	if t.IsZero() {
		return 0
	}
	return Millis(t.UnixMilli())
}

// Time returns the timestamp as a UTC time, or the zero time when absent.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m)).UTC()
}

// NormalizeMillis converts any accepted timestamp representation to Unix
// milliseconds. Unknown or absent values normalize to 0.
func NormalizeMillis(v interface{}) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case Millis:
		return int64(t)
	case time.Time:
		if t.IsZero() {
			return 0
		}
		return t.UnixMilli()
	case *time.Time:
		if t == nil {
			return 0
		}
		return NormalizeMillis(*t)
	case primitive.DateTime:
		return int64(t)
	case primitive.Timestamp:
		return int64(t.T) * 1000
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UnixMilli()
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return 0
	case bson.Raw:
		seconds := lookupNumber(t, "_seconds", "seconds")
		nanos := lookupNumber(t, "_nanoseconds", "nanoseconds")
		return seconds*1000 + nanos/int64(time.Millisecond)
	default:
		return 0
	}
}

func lookupNumber(doc bson.Raw, keys ...string) int64 {
	for _, key := range keys {
		rv, err := doc.LookupErr(key)
		if err != nil {
			continue
		}
		return NormalizeMillis(rawValueToGo(rv))
	}
	return 0
}

func rawValueToGo(rv bson.RawValue) interface{} {
	switch rv.Type {
	case bsontype.DateTime:
		return primitive.DateTime(rv.DateTime())
	case bsontype.Timestamp:
		t, i := rv.Timestamp()
		return primitive.Timestamp{T: t, I: i}
	case bsontype.Int64:
		return rv.Int64()
	case bsontype.Int32:
		return rv.Int32()
	case bsontype.Double:
		return rv.Double()
	case bsontype.String:
		return rv.StringValue()
	case bsontype.EmbeddedDocument:
		return rv.Document()
	default:
		return nil
	}
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (m *Millis) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*m = Millis(NormalizeMillis(rawValueToGo(bson.RawValue{Type: t, Value: data})))
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler; values are written back as
// BSON datetimes.
func (m Millis) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if m == 0 {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(primitive.DateTime(m))
}

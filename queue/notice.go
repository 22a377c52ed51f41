// Package queue defines the transport-agnostic seam between the processor
// and a message broker: NoticeSource delivers inbound PointValue notices,
// UpdateSink publishes outbound computed updates. Concrete bindings live in
// the amqpqueue and redisqueue subpackages, both adapted from the teacher's
// queue package (queue/rabbit.go, queue/redis/queue.go).
package queue

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evalgo/rvpf/codec"
	"github.com/evalgo/rvpf/value"
)

// NoticeSource delivers inbound notices for the processor to consume.
// Ack/Nack let the concrete binding choose its own redelivery policy
// (RabbitMQ ack/nack, Redis processing-set removal, etc).
type NoticeSource interface {
	Notices() <-chan Delivery
	Ack(d Delivery) error
	Nack(d Delivery, requeue bool) error
	Close() error
}

// Delivery wraps one decoded-but-unresolved notice plus an opaque
// broker-specific token the binding needs to Ack/Nack it. The binding
// cannot resolve PointKey to a value.PointRef itself (it has no access to
// the metadata arena); the consumer calls Notice.Resolve with a ref looked
// up from its own arena before handing the result to the processor.
type Delivery struct {
	Notice WireValue
	Token  any
}

// UpdateSink publishes computed updates (and side-channel signals) to a
// downstream queue or topic.
type UpdateSink interface {
	PublishUpdate(v value.PointValue) error
	PublishSignal(name string, info any) error
	Close() error
}

// WireValue is the broker-portable encoding of a value.PointValue: a
// resolved PointRef does not survive serialization, so the wire form always
// carries the point identity as a UUID string (falling back to name when
// the ref isn't UUID-keyed) to be re-resolved against the receiving
// process's metadata arena.
type WireValue struct {
	PointKey string
	ByUUID   bool
	Stamp    time.Time
	Variant  value.Variant
	Version  int64
	HasValue bool
	Value    any
}

// EncodeNotice renders v as broker-portable bytes using the Externalizer
// binary codec for the payload value, mirroring the teacher's
// JSON-over-AMQP envelope shape (queue/rabbit.go's PublishMessage) but with
// the Externalizer codec already used for PointValue content instead of
// encoding/json.
func EncodeNotice(v value.PointValue) ([]byte, error) {
	key := v.Point().Key()
	_, byUUID := isUUIDKey(key)

	var buf bytes.Buffer
	if err := codec.Externalize(&buf, key); err != nil {
		return nil, fmt.Errorf("queue: encode point key: %w", err)
	}
	if err := codec.Externalize(&buf, byUUID); err != nil {
		return nil, err
	}
	if err := codec.Externalize(&buf, v.Stamp().UnixNano()); err != nil {
		return nil, fmt.Errorf("queue: encode stamp: %w", err)
	}
	if err := codec.Externalize(&buf, int32(v.Kind())); err != nil {
		return nil, err
	}
	if err := codec.Externalize(&buf, v.Version()); err != nil {
		return nil, err
	}
	hasValue := v.Value() != nil
	if err := codec.Externalize(&buf, hasValue); err != nil {
		return nil, err
	}
	if hasValue {
		if err := codec.Externalize(&buf, v.Value()); err != nil {
			return nil, fmt.Errorf("queue: encode value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeNotice parses bytes produced by EncodeNotice into a WireValue; the
// caller resolves PointKey against its own metadata arena to obtain a
// concrete value.PointRef before handing the result to the processor.
func DecodeNotice(data []byte) (WireValue, error) {
	r := bytes.NewReader(data)
	key, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, fmt.Errorf("queue: decode point key: %w", err)
	}
	keyStr, _ := key.(string)

	byUUIDRaw, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, err
	}
	byUUID, _ := byUUIDRaw.(bool)

	stampRaw, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, fmt.Errorf("queue: decode stamp: %w", err)
	}
	stampNanos, _ := stampRaw.(int64)

	variantRaw, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, err
	}
	variant, _ := variantRaw.(int32)

	versionRaw, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, err
	}
	version, _ := versionRaw.(int64)

	hasValueRaw, err := codec.Internalize(r)
	if err != nil {
		return WireValue{}, err
	}
	hasValue, _ := hasValueRaw.(bool)

	var val any
	if hasValue {
		val, err = codec.Internalize(r)
		if err != nil {
			return WireValue{}, fmt.Errorf("queue: decode value: %w", err)
		}
	}

	return WireValue{
		PointKey: keyStr,
		ByUUID:   byUUID,
		Stamp:    time.Unix(0, stampNanos).UTC(),
		Variant:  value.Variant(variant),
		Version:  version,
		HasValue: hasValue,
		Value:    val,
	}, nil
}

// Resolve turns a decoded WireValue into a value.PointValue bound to ref,
// reconstructing the correct constructor for its Variant.
func (w WireValue) Resolve(ref value.PointRef) value.PointValue {
	switch w.Variant {
	case value.VariantSynthesized:
		return value.NewSynthesized(ref, w.Stamp, w.Value)
	case value.VariantVersioned:
		return value.NewVersioned(ref, w.Stamp, w.Value, w.Version)
	case value.VariantDeleted:
		return value.NewDeleted(ref, w.Stamp, w.Version)
	case value.VariantPurged:
		return value.NewPurged(ref, w.Stamp, w.Version)
	case value.VariantRecalcTrigger:
		return value.NewRecalcTrigger(ref, w.Stamp)
	case value.VariantNull:
		return value.NewNull(ref, w.Stamp)
	case value.VariantResult:
		return value.NewResult(ref, w.Stamp)
	default:
		return value.New(ref, w.Stamp, w.Value)
	}
}

func isUUIDKey(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(key)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

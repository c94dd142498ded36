// Package engine provides the random sources behind the Monte Carlo simulator.
//
// Every source yields floats in [0, 1). Seeded sources are fully reproducible,
// so a simulation can be replayed from the seed it reports.
package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Source is the minimal random interface consumed by the simulator.
type Source interface {
	Float64() float64
}

// SourceFunc adapts a plain function to Source. Handy for scripted tests.
type SourceFunc func() float64

// Float64 implements Source.
func (f SourceFunc) Float64() float64 { return f() }

// ByteGenerator streams HMAC-SHA256 output, 32 bytes per round.
type ByteGenerator struct {
	key          []byte
	label        string
	stream       uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator keys the generator with key and separates independent
// streams by label and stream index.
func NewByteGenerator(key, label string, stream uint64) *ByteGenerator {
	bg := &ByteGenerator{
		key:    []byte(key),
		label:  label,
		stream: stream,
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the generator
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= len(bg.buffer) {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// Float64 consumes exactly 4 bytes.
func (bg *ByteGenerator) Float64() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, bg.key)
	fmt.Fprintf(h, "%s:%d:%d", bg.label, bg.stream, bg.currentRound)
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat maps 4 bytes onto [0, 1) as a base-256 fraction.
func bytesToFloat(b [4]byte) float64 {
	result := 0.0
	divider := 1.0
	for _, v := range b {
		divider *= 256
		result += float64(v) / divider
	}
	return result
}

// Generator names a family of seeded sources.
type Generator string

const (
	// GeneratorHMAC streams HMAC-SHA256 output keyed by the seed.
	GeneratorHMAC Generator = "hmac"
	// GeneratorMulberry32 uses the 32-bit Mulberry32 PRNG, which can be
	// reproduced line for line in JavaScript.
	GeneratorMulberry32 Generator = "mulberry32"
)

// ParseGenerator accepts "" as the HMAC default.
func ParseGenerator(name string) (Generator, error) {
	switch Generator(name) {
	case "", GeneratorHMAC:
		return GeneratorHMAC, nil
	case GeneratorMulberry32:
		return GeneratorMulberry32, nil
	default:
		return "", fmt.Errorf("unknown generator %q", name)
	}
}

// Stream returns the reproducible source for one batch of work. Equal
// (seed, stream) pairs always produce the same sequence.
func (g Generator) Stream(seed, stream uint64) Source {
	if g == GeneratorMulberry32 {
		mixed := uint32(seed) ^ uint32(seed>>32) ^ uint32(stream*0x9E3779B9)
		return NewMulberry32(mixed)
	}
	return NewStream(seed, stream)
}

// NewStream returns an HMAC stream for (seed, stream).
func NewStream(seed, stream uint64) Source {
	return NewByteGenerator(strconv.FormatUint(seed, 10), "montecarlo", stream)
}

// Mulberry32 is a small, fast 32-bit PRNG.
// Algorithm: https://gist.github.com/tommyettinger/46a874533244883189143505d203312c
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 seeds a Mulberry32 generator.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Next returns the next 32-bit value.
func (m *Mulberry32) Next() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 implements Source.
func (m *Mulberry32) Float64() float64 {
	return float64(m.Next()) / 4294967296.0
}

// EntropySeed draws a fresh 64-bit seed from crypto/rand.
func EntropySeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

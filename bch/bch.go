// Package bch implements systematic binary BCH codes over GF(2^m). The codec
// is parameterized by the (N, K, T) triple and the field polynomial; the
// generator polynomial is derived at construction from the minimal
// polynomials of alpha^1..alpha^2T, and construction fails if the triple does
// not describe a real code.
package bch

import (
	"fmt"
	"math/bits"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// DecodeFailed is the sentinel returned by Decode when the error pattern
// exceeds the correction capacity of the code.
const DecodeFailed = -1

// Codec encodes and decodes one code block. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	n, k, t int
	f       *field
	gen     []uint8 // generator polynomial, gen[i] = coeff of x^i
}

// New constructs a codec for the (n, k, t) binary BCH code over the field
// defined by poly. The generator degree must come out to exactly n-k;
// anything else means the parameters do not name a real code and is rejected
// as configuration error.
func New(n, k, t, poly int) (*Codec, error) {
	m := bits.Len(uint(poly)) - 1
	if m < 3 || n != (1<<m)-1 {
		return nil, fmt.Errorf("%w: code length %d does not match degree-%d field", interfaces.ErrInvalidConfig, n, m)
	}
	if k >= n || k < 1 {
		return nil, fmt.Errorf("%w: message length %d out of range for n=%d", interfaces.ErrInvalidConfig, k, n)
	}
	if t < 1 || 2*t >= n {
		return nil, fmt.Errorf("%w: correction capacity %d out of range", interfaces.ErrInvalidConfig, t)
	}

	f := newField(m, poly)
	if !f.isPrimitive() {
		return nil, fmt.Errorf("%w: field polynomial %#x is not primitive", interfaces.ErrInvalidConfig, poly)
	}

	gen, err := generatorPolynomial(f, t)
	if err != nil {
		return nil, err
	}
	if len(gen)-1 != n-k {
		return nil, fmt.Errorf("%w: BCH(%d,%d,%d) is not a valid code: generator degree is %d, expected %d",
			interfaces.ErrInvalidConfig, n, k, t, len(gen)-1, n-k)
	}

	return &Codec{n: n, k: k, t: t, f: f, gen: gen}, nil
}

// generatorPolynomial multiplies the minimal polynomials of alpha^1..alpha^2t,
// one per cyclotomic coset.
func generatorPolynomial(f *field, t int) ([]uint8, error) {
	gen := []uint8{1}
	visited := make([]bool, f.n)
	for i := 1; i <= 2*t; i++ {
		if visited[i%f.n] {
			continue
		}
		coset := f.cyclotomicCoset(i % f.n)
		for _, j := range coset {
			visited[j] = true
		}
		minPoly, ok := f.minimalPolynomial(coset)
		if !ok {
			return nil, fmt.Errorf("%w: minimal polynomial of alpha^%d is not binary", interfaces.ErrInvalidConfig, i)
		}
		gen = polyMulGF2(gen, minPoly)
	}
	return gen, nil
}

func polyMulGF2(a, b []uint8) []uint8 {
	out := make([]uint8, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] ^= bv
		}
	}
	return out
}

// N returns the codeword length in bits.
func (c *Codec) N() int { return c.n }

// K returns the message length in bits.
func (c *Codec) K() int { return c.k }

// T returns the correction capacity in bit errors per block.
func (c *Codec) T() int { return c.t }

// Encode produces the systematic codeword for a k-bit message. Bit i of the
// result is the coefficient of x^(n-1-i): message bits first, parity bits
// after.
func (c *Codec) Encode(msg []uint8) ([]uint8, error) {
	if len(msg) != c.k {
		return nil, fmt.Errorf("%w: message length %d, expected %d bits", interfaces.ErrInvalidInput, len(msg), c.k)
	}

	parityLen := c.n - c.k
	// rem[j] holds the coefficient of x^j of the running remainder of
	// msg(x) * x^(n-k) mod gen(x).
	rem := make([]uint8, parityLen)
	for _, b := range msg {
		feedback := b ^ rem[parityLen-1]
		copy(rem[1:], rem[:parityLen-1])
		rem[0] = 0
		if feedback == 1 {
			for j := 0; j < parityLen; j++ {
				rem[j] ^= c.gen[j]
			}
		}
	}

	cw := make([]uint8, c.n)
	copy(cw, msg)
	for j := 0; j < parityLen; j++ {
		cw[c.k+j] = rem[parityLen-1-j]
	}
	return cw, nil
}

// Decode corrects a noisy codeword in place and returns the number of bit
// flips applied, or DecodeFailed if the error pattern is uncorrectable.
// Exceeding the capacity is a normal outcome for this primitive, not an
// error.
func (c *Codec) Decode(cw []uint8) (int, error) {
	if len(cw) != c.n {
		return DecodeFailed, fmt.Errorf("%w: codeword length %d, expected %d bits", interfaces.ErrInvalidInput, len(cw), c.n)
	}

	syn, clean := c.syndromes(cw)
	if clean {
		return 0, nil
	}

	sigma, degree := c.berlekampMassey(syn)
	if degree > c.t {
		return DecodeFailed, nil
	}

	flips := 0
	for e := 0; e < c.n; e++ {
		if c.evalAtAlphaInverse(sigma, degree, e) != 0 {
			continue
		}
		// sigma(alpha^-e) == 0 puts an error at the coefficient of x^e.
		cw[c.n-1-e] ^= 1
		flips++
	}
	if flips != degree {
		return DecodeFailed, nil
	}
	return flips, nil
}

// syndromes evaluates the received polynomial at alpha^1..alpha^2t.
func (c *Codec) syndromes(cw []uint8) ([]int, bool) {
	syn := make([]int, 2*c.t)
	clean := true
	for i := 1; i <= 2*c.t; i++ {
		s := 0
		for p, b := range cw {
			if b == 0 {
				continue
			}
			s ^= c.f.alpha(i * (c.n - 1 - p))
		}
		syn[i-1] = s
		if s != 0 {
			clean = false
		}
	}
	return syn, clean
}

// berlekampMassey computes the error locator polynomial from the syndromes.
// Returns the locator coefficients (sigma[j] = coeff of x^j) and its degree.
func (c *Codec) berlekampMassey(syn []int) ([]int, int) {
	sigma := make([]int, 2*c.t+1)
	prev := make([]int, 2*c.t+1)
	scratch := make([]int, 2*c.t+1)
	sigma[0] = 1
	prev[0] = 1

	length := 0
	shift := 1
	lastDiscrepancy := 1

	for i := 0; i < 2*c.t; i++ {
		d := syn[i]
		for j := 1; j <= length; j++ {
			d ^= c.f.mul(sigma[j], syn[i-j])
		}
		if d == 0 {
			shift++
			continue
		}
		coef := c.f.mul(d, c.f.inv(lastDiscrepancy))
		if 2*length <= i {
			copy(scratch, sigma)
			for j := 0; j+shift <= 2*c.t; j++ {
				sigma[j+shift] ^= c.f.mul(coef, prev[j])
			}
			length = i + 1 - length
			copy(prev, scratch)
			lastDiscrepancy = d
			shift = 1
		} else {
			for j := 0; j+shift <= 2*c.t; j++ {
				sigma[j+shift] ^= c.f.mul(coef, prev[j])
			}
			shift++
		}
	}
	return sigma, length
}

// evalAtAlphaInverse evaluates sigma at alpha^-e.
func (c *Codec) evalAtAlphaInverse(sigma []int, degree, e int) int {
	v := sigma[0]
	for j := 1; j <= degree; j++ {
		if sigma[j] == 0 {
			continue
		}
		v ^= c.f.mul(sigma[j], c.f.alpha(-e*j))
	}
	return v
}

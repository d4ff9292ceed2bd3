package bch

// field implements arithmetic over GF(2^m) generated by a primitive
// polynomial. Elements are represented by their polynomial basis value;
// exp/log tables make multiplication a pair of lookups.
type field struct {
	m   int
	n   int // 2^m - 1, the multiplicative group order
	exp []int
	log []int
}

func newField(m, poly int) *field {
	n := (1 << m) - 1
	f := &field{
		m:   m,
		n:   n,
		exp: make([]int, n),
		log: make([]int, n+1),
	}
	x := 1
	for i := 0; i < n; i++ {
		f.exp[i] = x
		f.log[x] = i
		x <<= 1
		if x&(1<<m) != 0 {
			x ^= poly
		}
	}
	return f
}

// alpha returns the field element with the given exponent, reduced mod n.
// Negative exponents are accepted.
func (f *field) alpha(e int) int {
	e %= f.n
	if e < 0 {
		e += f.n
	}
	return f.exp[e]
}

func (f *field) mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.alpha(f.log[a] + f.log[b])
}

func (f *field) inv(a int) int {
	return f.alpha(f.n - f.log[a])
}

// isPrimitive reports whether the exp table enumerated the full
// multiplicative group, i.e. the generating polynomial is primitive.
func (f *field) isPrimitive() bool {
	seen := make([]bool, f.n+1)
	for _, v := range f.exp {
		if v == 0 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// cyclotomicCoset returns the 2-cyclotomic coset of i mod n.
func (f *field) cyclotomicCoset(i int) []int {
	coset := []int{i}
	for j := i * 2 % f.n; j != i; j = j * 2 % f.n {
		coset = append(coset, j)
	}
	return coset
}

// minimalPolynomial computes the minimal polynomial over GF(2) of alpha^i for
// every i in the coset, as the product of (x + alpha^i). For a complete
// conjugate coset every coefficient collapses to {0,1}; ok is false otherwise.
// Coefficient j is the coeff of x^j.
func (f *field) minimalPolynomial(coset []int) ([]uint8, bool) {
	p := make([]int, 1, len(coset)+1)
	p[0] = 1
	for _, e := range coset {
		root := f.alpha(e)
		next := make([]int, len(p)+1)
		for j, c := range p {
			// multiply by x
			next[j+1] ^= c
			// multiply by the root
			next[j] ^= f.mul(c, root)
		}
		p = next
	}
	out := make([]uint8, len(p))
	for j, c := range p {
		if c != 0 && c != 1 {
			return nil, false
		}
		out[j] = uint8(c)
	}
	return out, true
}

package hrr

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Bind computes circular convolution of a and b via FFT: element-wise
// inverse-FFT of the complex product of FFT(a) and FFT(b), normalized
// afterwards. Dimensions must match; the shorter vector is
// treated as zero-padded.
func Bind(a, b Vector) Vector {
	n := a.Dim()
	if b.Dim() > n {
		n = b.Dim()
	}
	ap := padTo(a, n)
	bp := padTo(b, n)

	fft := fourier.NewFFT(n)
	ca := fft.Coefficients(nil, ap)
	cb := fft.Coefficients(nil, bp)

	product := make([]complex128, len(ca))
	for i := range product {
		product[i] = ca[i] * cb[i]
	}

	result := fft.Sequence(nil, product)
	return Normalize(Vector{Data: result})
}

// Inverse returns the approximate involution used to unbind: keep the
// first element, reverse the rest.
func Inverse(v Vector) Vector {
	n := v.Dim()
	out := make([]float64, n)
	if n == 0 {
		return Vector{Data: out}
	}
	out[0] = v.Data[0]
	for i := 1; i < n; i++ {
		out[i] = v.Data[n-i]
	}
	return Vector{Data: out}
}

// Unbind recovers (approximately) the vector bound with b to produce c:
// unbind(c, b) = bind(c, inverse(b)).
func Unbind(c, b Vector) Vector {
	return Bind(c, Inverse(b))
}

func padTo(v Vector, n int) []float64 {
	if len(v.Data) == n {
		return append([]float64(nil), v.Data...)
	}
	out := make([]float64, n)
	copy(out, v.Data)
	return out
}

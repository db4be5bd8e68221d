// Package jacobianmath provides the dense-matrix and SVD machinery the
// Jacobian IK solver is built on: a thin wrapper over gonum/mat sized
// for (3*effectors) x joints Jacobians, plus damped least-squares and
// pseudo-inverse helpers shared by any solver variant that wants them.
package jacobianmath

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ZeroSingularValueRatio is the fraction of the largest singular value
// below which a singular value is treated as numerically zero.
const ZeroSingularValueRatio = 1e-12

// Matrix is a dense real matrix of arbitrary shape with in-place
// arithmetic, backed by gonum's mat.Dense.
type Matrix struct {
	*mat.Dense
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{mat.NewDense(rows, cols, nil)}
}

// SVDResult holds the factorization M = U * diag(W) * V^T with W sorted
// descending and non-negative, per spec.md 4.2.
type SVDResult struct {
	U *mat.Dense
	V *mat.Dense
	W []float64
}

// ComputeSVD performs a full Golub-Reinsch SVD of m.
func ComputeSVD(m *Matrix) (SVDResult, error) {
	var svd mat.SVD
	ok := svd.Factorize(m.Dense, mat.SVDFull)
	if !ok {
		return SVDResult{}, errors.New("jacobianmath: SVD factorization failed to converge")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	return SVDResult{U: &u, V: &v, W: values}, nil
}

// NumericalZero reports whether a singular value is small enough,
// relative to the largest one in w, to be treated as zero.
func NumericalZero(w []float64, wi float64) bool {
	if len(w) == 0 {
		return true
	}
	max := w[0]
	for _, v := range w {
		if v > max {
			max = v
		}
	}
	return wi <= ZeroSingularValueRatio*max
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse of m via its
// SVD, treating numerically-zero singular values as exactly singular
// (their contribution is dropped rather than blown up).
func PseudoInverse(m *Matrix) (*Matrix, error) {
	svd, err := ComputeSVD(m)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	pinv := mat.NewDense(cols, rows, nil)
	for i, wi := range svd.W {
		if NumericalZero(svd.W, wi) {
			continue
		}
		vi := mat.Col(nil, i, svd.V)
		ui := mat.Col(nil, i, svd.U)
		var outer mat.Dense
		outer.Outer(1/wi, mat.NewVecDense(len(vi), vi), mat.NewVecDense(len(ui), ui))
		pinv.Add(pinv, &outer)
	}
	return &Matrix{pinv}, nil
}

// DampedLeastSquaresSolve solves J*dtheta = dS via the classical
// (non-selective) damped least squares formula
//
//	dtheta = sum_i  wi/(wi^2 + lambda^2) * (Ui . dS) * Vi
//
// It is kept alongside the Jacobian solver's SDLS implementation
// (package ik) as the source's plain-DLS fallback; matrix_test.go
// checks it against PseudoInverse for SVD correctness independent of
// SDLS's per-component clamping.
func DampedLeastSquaresSolve(j *Matrix, dS []float64, lambda float64) ([]float64, error) {
	svd, err := ComputeSVD(j)
	if err != nil {
		return nil, err
	}
	_, cols := j.Dims()
	dTheta := make([]float64, cols)
	dSVec := mat.NewVecDense(len(dS), dS)
	for i, wi := range svd.W {
		if NumericalZero(svd.W, wi) {
			continue
		}
		ui := mat.NewVecDense(dSVec.Len(), mat.Col(nil, i, svd.U))
		uDotDs := mat.Dot(ui, dSVec)
		scale := wi / (wi*wi + lambda*lambda) * uDotDs
		vi := mat.Col(nil, i, svd.V)
		for j := range dTheta {
			dTheta[j] += scale * vi[j]
		}
	}
	return dTheta, nil
}

// FrobeniusReconstructionError computes ||U*diag(W)*V^T - M||_F, used
// by tests to verify SVD correctness (spec.md 8, property 5).
func FrobeniusReconstructionError(m *Matrix, svd SVDResult) float64 {
	rows, cols := m.Dims()
	recon := mat.NewDense(rows, cols, nil)
	for i, wi := range svd.W {
		ui := mat.Col(nil, i, svd.U)
		vi := mat.Col(nil, i, svd.V)
		var outer mat.Dense
		outer.Outer(wi, mat.NewVecDense(len(ui), ui), mat.NewVecDense(len(vi), vi))
		recon.Add(recon, &outer)
	}
	var diff mat.Dense
	diff.Sub(recon, m.Dense)
	return mat.Norm(&diff, 2)
}

package locator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomMat3(rng *rand.Rand) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = rng.Float64()*4 - 2
		}
	}
	return m
}

func dense(m Mat3) *mat.Dense {
	return mat.NewDense(3, 3, m.Flat())
}

func assertMatchesDense(t *testing.T, want *mat.Dense, got Mat3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want.At(i, j), got[i][j], tol, "entry (%d,%d)", i, j)
		}
	}
}

func TestMat3_MulMatchesGonum(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))

	for n := 0; n < 20; n++ {
		a, b := randomMat3(rng), randomMat3(rng)
		var want mat.Dense
		want.Mul(dense(a), dense(b))
		assertMatchesDense(t, &want, a.Mul(b), 1e-12)
	}
}

func TestMat3_MulVecMatchesGonum(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(2))

	a := randomMat3(rng)
	v := Vec3{rng.Float64(), rng.Float64(), rng.Float64()}
	var want mat.VecDense
	want.MulVec(dense(a), mat.NewVecDense(3, v[:]))

	got := a.MulVec(v)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want.AtVec(i), got[i], 1e-12)
	}
}

func TestMat3_InverseMatchesGonum(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))

	for n := 0; n < 20; n++ {
		a := randomMat3(rng).Add(Diag3(3, 3, 3))
		var want mat.Dense
		require.NoError(t, want.Inverse(dense(a)))

		got, ok := a.Inverse()
		require.True(t, ok)
		assertMatchesDense(t, &want, got, 1e-9)
		assert.InDelta(t, mat.Det(dense(a)), a.Det(), 1e-9)

		id := a.Mul(got)
		assertMatchesDense(t, mat.NewDense(3, 3, Identity3().Flat()), id, 1e-9)
	}
}

func TestMat3_InverseSingular(t *testing.T) {
	t.Parallel()

	_, ok := Mat3{}.Inverse()
	assert.False(t, ok)

	rankTwo := Mat3{
		{1, 2, 3},
		{2, 4, 6},
		{0, 1, 1},
	}
	_, ok = rankTwo.Inverse()
	assert.False(t, ok)

	withNaN := Identity3()
	withNaN[1][2] = math.NaN()
	_, ok = withNaN.Inverse()
	assert.False(t, ok)
}

func TestMat3_SymmetrizeAndTranspose(t *testing.T) {
	t.Parallel()

	m := Mat3{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	assert.False(t, m.IsSymmetric(1e-12))
	assert.Equal(t, m, m.Transpose().Transpose())

	s := m.Symmetrize()
	assert.True(t, s.IsSymmetric(0))
	assert.Equal(t, 3.0, s[0][1])
	assert.Equal(t, Vec3{1, 5, 9}, s.Diagonal())
}

func TestVec3_AddSub(t *testing.T) {
	t.Parallel()

	a := Vec3{1, 2, 3}
	b := Vec3{0.5, -1, 2}
	assert.Equal(t, Vec3{1.5, 1, 5}, a.Add(b))
	assert.Equal(t, Vec3{0.5, 3, 1}, a.Sub(b))
}

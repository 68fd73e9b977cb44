package flight

import (
	"gonum.org/v1/gonum/mat"
)

// PressureDrop is the shape of the pressure rise measured during descent.
type PressureDrop int

const (
	// Linear pressure change means constant descent velocity: the drogue is open.
	Linear PressureDrop = iota
	// Quadratic pressure change means the vehicle is still accelerating downwards.
	Quadratic
)

func (p PressureDrop) String() string {
	if p == Quadratic {
		return "QUADRATIC"
	}
	return "LINEAR"
}

// Measurement is a pressure sample taken while measuring the descent profile.
type Measurement struct {
	Timestamp Timestamp
	Pressure  float64
}

// Classifier decides the descent profile from three measurements taken about a
// second apart.
type Classifier interface {
	Classify(m [3]Measurement) PressureDrop
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(m [3]Measurement) PressureDrop

func (f ClassifierFunc) Classify(m [3]Measurement) PressureDrop {
	return f(m)
}

// AlwaysLinear reports every descent as linear.
var AlwaysLinear = ClassifierFunc(func([3]Measurement) PressureDrop { return Linear })

// QuadraticCurvatureThreshold is the default second derivative of pressure over
// time, in mbar/s², above which a descent is considered accelerating. Free fall
// near the ground gives roughly 1.2 mbar/s², a steady descent close to zero.
const QuadraticCurvatureThreshold = 0.5

// FitClassifier fits p(t) = a + b·t + c·t² exactly through the three
// measurements and compares the curvature 2c against Threshold.
type FitClassifier struct {
	Threshold float64
}

// NewFitClassifier returns a FitClassifier using QuadraticCurvatureThreshold.
func NewFitClassifier() *FitClassifier {
	return &FitClassifier{Threshold: QuadraticCurvatureThreshold}
}

// Curvature returns the second time derivative of the fitted pressure curve in
// mbar/s². ok is false when the timestamps do not allow a fit.
func (f *FitClassifier) Curvature(m [3]Measurement) (curvature float64, ok bool) {
	vandermonde := make([]float64, 0, 9)
	pressures := make([]float64, 0, 3)
	for _, s := range m {
		t := s.Timestamp.Sub(m[0].Timestamp).Seconds()
		vandermonde = append(vandermonde, 1, t, t*t)
		pressures = append(pressures, s.Pressure)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(mat.NewDense(3, 3, vandermonde), mat.NewVecDense(3, pressures)); err != nil {
		return 0, false
	}
	return 2 * coef.AtVec(2), true
}

// Classify implements Classifier. Degenerate inputs are reported as linear.
func (f *FitClassifier) Classify(m [3]Measurement) PressureDrop {
	curvature, ok := f.Curvature(m)
	if !ok || curvature <= f.Threshold {
		return Linear
	}
	return Quadratic
}

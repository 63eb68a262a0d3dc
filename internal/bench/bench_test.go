package bench

import (
	"math"
	"testing"
)

func TestSphere(t *testing.T) {
	if got := Sphere([]float64{0, 0, 0}); got != 0 {
		t.Errorf("Sphere(origin) = %g, want 0", got)
	}
	if got := Sphere([]float64{1, 2}); got != 5 {
		t.Errorf("Sphere([1 2]) = %g, want 5", got)
	}
}

func TestRastrigin(t *testing.T) {
	if got := Rastrigin([]float64{0, 0, 0, 0}); math.Abs(got) > 1e-12 {
		t.Errorf("Rastrigin(origin) = %g, want 0", got)
	}
	// Any non-origin point scores worse than the minimum.
	if got := Rastrigin([]float64{0.5, -0.5}); got <= 0 {
		t.Errorf("Rastrigin off-origin = %g, want > 0", got)
	}
}

func TestRosenbrock(t *testing.T) {
	if got := Rosenbrock([]float64{1, 1, 1}); got != 0 {
		t.Errorf("Rosenbrock(ones) = %g, want 0", got)
	}
	if got := Rosenbrock([]float64{0, 0}); got != 1 {
		t.Errorf("Rosenbrock(origin) = %g, want 1", got)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"sphere", "rastrigin", "rosenbrock"} {
		e, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if e.Name() != name {
			t.Errorf("evaluator name = %q, want %q", e.Name(), name)
		}
	}
	if _, err := ByName("ackley"); err == nil {
		t.Error("expected error for unknown objective")
	}
}

func TestEvaluatorNegatesAndCharacterizes(t *testing.T) {
	e, err := ByName("sphere")
	if err != nil {
		t.Fatal(err)
	}

	fitness, characteristic := e.Evaluate([]float64{1, 2, 3})
	if fitness != -14 {
		t.Errorf("fitness = %g, want -14 (negated sphere value)", fitness)
	}
	if len(characteristic) != 2 || characteristic[0] != 1 || characteristic[1] != 2 {
		t.Errorf("characteristic = %v, want [1 2]", characteristic)
	}
}

func TestEvaluatorShortVector(t *testing.T) {
	e, err := ByName("sphere")
	if err != nil {
		t.Fatal(err)
	}
	_, characteristic := e.Evaluate([]float64{4})
	if len(characteristic) != 2 || characteristic[0] != 4 || characteristic[1] != 0 {
		t.Errorf("characteristic = %v, want [4 0]", characteristic)
	}
}

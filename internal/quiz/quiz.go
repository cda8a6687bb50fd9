package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ErrInvalidAnswer is returned when an answer is not an integer.
var ErrInvalidAnswer = errors.New("quiz: answer must be a whole number")

// Difficulty selects the operand ranges and reward of a challenge.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
)

// ParseDifficulty maps a label to a Difficulty. Anything that is not
// "medium" falls back to Easy.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Medium:
		return Medium
	default:
		return Easy
	}
}

// Reward returns the credits awarded for a correct answer.
func (d Difficulty) Reward() int {
	if d == Medium {
		return 2
	}
	return 1
}

// Challenge is a single arithmetic question.
type Challenge struct {
	Difficulty Difficulty
	Prompt     string
	Answer     int
	Reward     int
}

// Check parses input and reports whether it matches the answer.
func (c Challenge) Check(input string) (bool, error) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidAnswer, input)
	}
	return value == c.Answer, nil
}

// Generator produces challenges. It holds no state besides its random
// source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Default creates a generator with a randomly seeded source.
func Default() *Generator {
	return NewGenerator(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Generate returns a new challenge at the given difficulty.
func (g *Generator) Generate(d Difficulty) Challenge {
	if d == Medium {
		return g.medium()
	}
	return g.easy()
}

func (g *Generator) easy() Challenge {
	c := Challenge{Difficulty: Easy, Reward: Easy.Reward()}
	if g.rng.IntN(2) == 0 {
		a, b := g.between(1, 50), g.between(1, 50)
		c.Prompt = fmt.Sprintf("%d + %d", a, b)
		c.Answer = a + b
		return c
	}
	// Subtrahend never exceeds the minuend, so the result is non-negative.
	a := g.between(1, 100)
	b := g.between(1, a)
	c.Prompt = fmt.Sprintf("%d - %d", a, b)
	c.Answer = a - b
	return c
}

func (g *Generator) medium() Challenge {
	c := Challenge{Difficulty: Medium, Reward: Medium.Reward()}
	if g.rng.IntN(2) == 0 {
		a, b := g.between(1, 20), g.between(1, 20)
		c.Prompt = fmt.Sprintf("%d × %d", a, b)
		c.Answer = a * b
		return c
	}
	divisor := g.between(1, 20)
	quotient := g.between(1, 10)
	c.Prompt = fmt.Sprintf("%d ÷ %d", divisor*quotient, divisor)
	c.Answer = quotient
	return c
}

// between returns a uniformly distributed integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

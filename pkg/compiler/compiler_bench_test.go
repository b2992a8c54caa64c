package compiler

import "testing"

// simpleSource is a minimal program used for benchmarking the fast path.
const simpleSource = `
add :: (a: int, b: int) -> int {
	<- a + b;
}

main :: () -> int {
	<- add(3, 4);
}
`

// complexSource is a larger program exercising loops, conditionals, nested
// calls and recursion.
const complexSource = `
abs :: (n: int) -> int {
	if (n < 0) {
		<- 0 - n;
	}
	<- n;
}

fib :: (n: int) -> int {
	if (n < 2) {
		<- n;
	}
	<- fib(n - 1) + fib(n - 2);
}

sum_to :: (n: int) -> int {
	total: int;
	i: int;
	total = 0;
	i = 1;
	while (i <= n) {
		total = total + i;
		i = i + 1;
	}
	<- total;
}

max :: (a: int, b: int) -> int {
	if (a > b) {
		<- a;
	}
	<- b;
}

// collatz counts the steps needed to reach 1.
collatz :: (n: int) -> int {
	steps: int;
	half: int;
	twice: int;
	odd: int;
	steps = 0;
	while (n != 1) {
		half = n / 2;
		twice = half + half;
		odd = twice != n;
		if (odd == 0) {
			n = half;
		}
		if (odd) {
			n = 1 + n * 3;
		}
		steps = steps + 1;
	}
	<- steps;
}

main :: () -> int {
	s: int;
	s = sum_to(10) + fib(8) + abs(-42) + max(collatz(27), sum_to(fib(5)));
	<- s;
}
`

// --- Lex benchmarks ---

func BenchmarkLex_Simple(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := Lex(simpleSource)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLex_Complex(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := Lex(complexSource)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// --- Parse benchmarks ---
// Tokens are pre-computed outside the timed region.

func benchmarkParse(b *testing.B, src string) {
	tokens, err := Lex(src)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if errs := ParseErrors(Parse(tokens, src), src); errs != nil {
			b.Fatal(errs)
		}
	}
}

func BenchmarkParse_Simple(b *testing.B)  { benchmarkParse(b, simpleSource) }
func BenchmarkParse_Complex(b *testing.B) { benchmarkParse(b, complexSource) }

// --- Generate (code generation) benchmarks ---
// Tokens and the flattened AST are pre-computed outside the timed region.

func benchmarkGenerate(b *testing.B, src string) {
	tokens, err := Lex(src)
	if err != nil {
		b.Fatal(err)
	}
	root := Parse(tokens, src)
	NewUnit(Options{}).Flatten(root)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Generate(root, NewUnit(Options{})); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerate_Simple(b *testing.B)  { benchmarkGenerate(b, simpleSource) }
func BenchmarkGenerate_Complex(b *testing.B) { benchmarkGenerate(b, complexSource) }

// --- Full pipeline benchmarks ---

func BenchmarkCompile_Simple(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(simpleSource, DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompile_Complex(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(complexSource, DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}

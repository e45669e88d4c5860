package benchmarks

import (
	"github.com/sarchlab/n64core/emutest"
	"github.com/sarchlab/n64core/insts"
)

const (
	zero = insts.RegZero
	v0   = insts.RegV0
	v1   = insts.RegV1
	t0   = insts.RegT0
	t1   = insts.RegT1
	t2   = insts.RegT2
	t3   = insts.RegT3
	t4   = insts.RegT4
	t5   = insts.RegT5
	s0   = insts.RegS0
	s7   = insts.RegS7
	t9   = insts.RegT9
	ra   = insts.RegRA
)

// DefaultIterations is the loop count of every microbenchmark.
const DefaultIterations = 1000

// functionAddr is where function_calls places its callee.
const functionAddr = 0x80001800

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// one runs a counted loop targeting a specific CPU characteristic and
// leaves a known value in v0.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(DefaultIterations),
		dependencyChain(DefaultIterations),
		memorySequential(DefaultIterations),
		functionCalls(DefaultIterations),
		branchTaken(DefaultIterations),
		mixedOperations(DefaultIterations),
		wideShifts(DefaultIterations),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(DefaultIterations),
		memorySequential(DefaultIterations),
		branchTaken(DefaultIterations),
	}
}

// loop wraps body in a loop running n times on s7, followed by epilogue
// and a write to the halt device.
func loop(prologue []uint32, n int16, body, epilogue []uint32) []uint32 {
	words := append([]uint32{}, prologue...)
	words = append(words, insts.EncodeADDIU(s7, zero, n))
	words = append(words, body...)
	words = append(words,
		insts.EncodeADDIU(s7, s7, -1),
		insts.EncodeBNE(s7, zero, -int16(len(body)+2)),
		insts.EncodeNOP(),
	)
	words = append(words, epilogue...)
	return append(words,
		insts.EncodeLUI(t9, 0xA500),
		insts.EncodeSW(zero, t9, 0),
		insts.EncodeBEQ(zero, zero, -1),
		insts.EncodeNOP(),
	)
}

func program(name string, words []uint32) emutest.Program {
	return emutest.Program{
		Name:   name,
		Chunks: []emutest.Chunk{{Addr: 0x1000, Words: words}},
	}
}

func repeat(n int, words ...uint32) []uint32 {
	var out []uint32
	for i := 0; i < n; i++ {
		out = append(out, words...)
	}
	return out
}

// 1. Arithmetic Sequential - independent register-only ALU work
func arithmeticSequential(n int16) Benchmark {
	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDIU per iteration - measures ALU throughput",
		Program: program("arithmetic_sequential", loop(nil, n,
			repeat(4,
				insts.EncodeADDIU(t0, t0, 1),
				insts.EncodeADDIU(t1, t1, 1),
				insts.EncodeADDIU(t2, t2, 1),
				insts.EncodeADDIU(t3, t3, 1),
				insts.EncodeADDIU(t4, t4, 1),
			),
			[]uint32{insts.EncodeADDU(v0, t4, zero)},
		)),
		ExpectedV0: 4 * uint64(n),
	}
}

// 2. Dependency Chain - every instruction consumes the previous result
func dependencyChain(n int16) Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIU per iteration",
		Program: program("dependency_chain", loop(nil, n,
			repeat(20, insts.EncodeADDIU(v0, v0, 1)),
			nil,
		)),
		ExpectedV0: 20 * uint64(n),
	}
}

// 3. Memory Sequential - store/load round trips through RDRAM
func memorySequential(n int16) Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "word and doubleword store/load pairs",
		Program: program("memory_sequential", loop(
			[]uint32{
				insts.EncodeLUI(s0, 0x8000),
				insts.EncodeORI(s0, s0, uint16(emutest.DataBase)),
			},
			n,
			[]uint32{
				insts.EncodeADDIU(t0, t0, 1),
				insts.EncodeSW(t0, s0, 0),
				insts.EncodeLW(t1, s0, 0),
				insts.EncodeSD(t1, s0, 8),
				insts.EncodeLD(v0, s0, 8),
			},
			nil,
		)),
		ExpectedV0: uint64(n),
	}
}

// 4. Function Calls - JAL/JR pairs with delay slots
func functionCalls(n int16) Benchmark {
	p := program("function_calls", loop(nil, n,
		[]uint32{
			insts.EncodeJAL(functionAddr),
			insts.EncodeNOP(),
		},
		nil,
	))
	p.Chunks = append(p.Chunks, emutest.Chunk{
		Addr: functionAddr & 0x1FFFFFFF,
		Words: []uint32{
			insts.EncodeJR(ra),
			insts.EncodeADDIU(v0, v0, 1),
		},
	})

	return Benchmark{
		Name:        "function_calls",
		Description: "call and return with work in the return delay slot",
		Program:     p,
		ExpectedV0:  uint64(n),
	}
}

// 5. Branch Taken - a taken forward branch skipping one instruction
func branchTaken(n int16) Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "unconditional forward BEQ per iteration",
		Program: program("branch_taken", loop(nil, n,
			[]uint32{
				insts.EncodeBEQ(zero, zero, 2),
				insts.EncodeNOP(),
				insts.EncodeADDIU(v1, v1, 100),
				insts.EncodeADDIU(v0, v0, 1),
			},
			nil,
		)),
		ExpectedV0: uint64(n),
	}
}

// 6. Mixed Operations - multiply, divide and ALU work
func mixedOperations(n int16) Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "MULT, DIVU and HI/LO moves mixed with ALU work",
		Program: program("mixed_operations", loop(nil, n,
			[]uint32{
				insts.EncodeADDIU(t0, t0, 3),
				insts.EncodeMULT(t0, t0),
				insts.EncodeMFLO(t1),
				insts.EncodeDIVU(t1, t0),
				insts.EncodeMFLO(t2),
				insts.EncodeSUBU(t3, t2, t0),
				insts.EncodeADDU(v0, v0, t3),
				insts.EncodeADDIU(v0, v0, 2),
			},
			nil,
		)),
		ExpectedV0: 2 * uint64(n),
	}
}

// 7. Wide Shifts - 64-bit shift and add
func wideShifts(n int16) Benchmark {
	return Benchmark{
		Name:        "wide_shifts",
		Description: "DSLL32/DSRA32 round trips and 64-bit adds",
		Program: program("wide_shifts", loop(
			[]uint32{insts.EncodeADDIU(t5, zero, 3)},
			n,
			[]uint32{
				insts.EncodeDSLL32(t0, t5, 0),
				insts.EncodeDSRA32(t1, t0, 0),
				insts.EncodeDADDU(v0, v0, t1),
			},
			nil,
		)),
		ExpectedV0: 3 * uint64(n),
	}
}

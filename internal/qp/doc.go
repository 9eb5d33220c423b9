// Package qp defines the quadratic programming capability each priority
// level relies on, and ships a default dense engine.
//
// A Problem is
//
//	minimize   ½·xᵀHx + gᵀx
//	subject to lower ≤ A·x ≤ upper
//
// with H symmetric positive definite. Rows whose lower and upper bounds are
// equal are equality constraints; infinite bounds leave a side open.
//
// Engines report two kinds of bad news differently. An infeasible
// constraint set is a normal outcome, returned as a Result with Status
// Infeasible and a nil error, because the cascade degrades gracefully past
// it. A malformed problem or a numerical breakdown is an *EngineError,
// which the cascade treats as fatal.
//
// Engines are not required to be safe for concurrent use. Callers that solve
// in parallel obtain one engine per goroutine from a Factory.
package qp

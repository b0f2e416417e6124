// Package scoring evaluates artifact content against a weighted matrix of
// dimensions and turns the external evaluator's report into a pass/fail
// decision.
//
// The evaluator itself is a collaborator behind the Evaluator interface;
// the gate only normalizes its report: dimensions the evaluator did not
// score contribute zero and surface as MissingCheck issues rather than
// failing the evaluation outright.
package scoring

// Package diagnostics provides the centralized diagnostic-code taxonomy for
// the type checker. All diagnostics surfaced by internal/resolve,
// internal/decl, and internal/constraints route through this package.
//
// Grounded on the teacher's internal/errors/codes.go (a flat, phase-prefixed
// code taxonomy) and internal/types/errors.go's TypeCheckError struct shape;
// this package owns a single phase ("typecheck"), so every code shares the
// TC prefix rather than the teacher's per-phase PAR/MOD/LDR split.
package diagnostics

// Code identifies a diagnostic kind, matching spec.md §6's list.
type Code string

const (
	TCUndefinedName              Code = "TC001"
	TCAmbiguousUse                Code = "TC002"
	TCCircularDependency          Code = "TC003"
	TCMissingReturnValue          Code = "TC004"
	TCUnusedResult                Code = "TC005" // warning
	TCConformanceToNonTrait       Code = "TC006"
	TCNonTraitType                Code = "TC007"
	TCDuplicateParameterName      Code = "TC008"
	TCDuplicateCaptureName        Code = "TC009"
	TCDuplicateOperator           Code = "TC010"
	TCRedundantConformance        Code = "TC011"
	TCInvalidSelfReference        Code = "TC012"
	TCNonCallableType             Code = "TC013"
	TCInvalidGenericArgumentCount Code = "TC014"
	TCMismatchedArgumentLabels    Code = "TC015"
	TCCannotExtendBuiltin         Code = "TC016"
	TCMutatingBundleMustReturnSelfValue Code = "TC017"
	TCSumTypeZeroElements         Code = "TC018" // warning
	TCSumTypeOneElement           Code = "TC019"
	TCValueInSumType              Code = "TC020"
	TCInvalidEqualityConstraint    Code = "TC021"
	TCInvalidConformanceConstraint Code = "TC022"
	TCNotEnoughContextToInfer      Code = "TC023"
	TCNameRefersToValue            Code = "TC024"
	TCInvalidAssociatedTypeUse     Code = "TC025"
	TCExpectedTypeAnnotation       Code = "TC026" // fatal when reached

	TCCircularRefinement Code = "TC027"
	TCDuplicateConformance Code = "TC028"
	TCConformanceNotSatisfied Code = "TC029"

	// Open-question placeholders (spec.md §9 / DESIGN.md).
	TCBufferTypeSugarNotImplemented     Code = "TC901"
	TCConditionalExtensionUnchecked     Code = "TC902" // TODO-class, not an error
	TCDuplicateOperatorDeclaration      Code = "TC903"
	TCAmbiguousConformanceWitness       Code = "TC904"
	TCAmbiguousCapture                  Code = "TC905"
)

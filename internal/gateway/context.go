package gateway

import "context"

type admissionContextKey struct{}

// WithAdmission stores the guard's decision for handlers further down.
func WithAdmission(ctx context.Context, admission Admission) context.Context {
	return context.WithValue(ctx, admissionContextKey{}, admission)
}

// AdmissionFrom returns the admission stored by WithAdmission.
func AdmissionFrom(ctx context.Context) (Admission, bool) {
	admission, ok := ctx.Value(admissionContextKey{}).(Admission)
	return admission, ok
}

package attestation

import "context"

// Fake is a deterministic Engine used by tests throughout this module: it
// returns a fixed GroundTruth/error pair (or invokes VerifyFunc, if set) and
// records every call it received.
type Fake struct {
	GroundTruth *GroundTruth
	Err         error
	VerifyFunc  func(ctx context.Context, enclaveHost, configRepo string) (*GroundTruth, error)

	Calls []FakeCall
}

// FakeCall records one Verify invocation's arguments.
type FakeCall struct {
	EnclaveHost string
	ConfigRepo  string
}

// Verify implements Engine.
func (f *Fake) Verify(ctx context.Context, enclaveHost, configRepo string) (*GroundTruth, error) {
	f.Calls = append(f.Calls, FakeCall{EnclaveHost: enclaveHost, ConfigRepo: configRepo})
	if f.VerifyFunc != nil {
		return f.VerifyFunc(ctx, enclaveHost, configRepo)
	}
	return f.GroundTruth, f.Err
}

// FakeFactory adapts a single Fake (or a constructor function, for tests
// that need a fresh Fake per call) to the Factory shape client/verifier
// depend on.
type FakeFactory struct {
	Engine  Engine
	NewFunc func() Engine
}

// New returns the configured Engine.
func (f *FakeFactory) New() Engine {
	if f.NewFunc != nil {
		return f.NewFunc()
	}
	return f.Engine
}

package svm

import (
	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

const (
	envConfigPrefix = "SVM_"

	RentLamportsPerByteYearConfigEnvName = envConfigPrefix + "RENT_LAMPORTS_PER_BYTE_YEAR"
	defaultRentLamportsPerByteYear       = system.DefaultLamportsPerByteYear

	RentExemptionThresholdConfigEnvName = envConfigPrefix + "RENT_EXEMPTION_THRESHOLD"
	defaultRentExemptionThreshold       = system.DefaultExemptionThreshold

	MaxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4

	VerifySignaturesConfigEnvName = envConfigPrefix + "VERIFY_SIGNATURES"
	defaultVerifySignatures       = true
)

type conf struct {
	rentLamportsPerByteYear config.Uint64
	rentExemptionThreshold  config.Uint64
	maxInvokeDepth          config.Uint64
	verifySignatures        config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			rentLamportsPerByteYear: env.NewUint64Config(RentLamportsPerByteYearConfigEnvName, defaultRentLamportsPerByteYear),
			rentExemptionThreshold:  env.NewUint64Config(RentExemptionThresholdConfigEnvName, defaultRentExemptionThreshold),
			maxInvokeDepth:          env.NewUint64Config(MaxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),
			verifySignatures:        env.NewBoolConfig(VerifySignaturesConfigEnvName, defaultVerifySignatures),
		}
	}
}

// Overrides replaces individual settings. Zero values keep the default.
type Overrides struct {
	RentLamportsPerByteYear   uint64
	RentExemptionThreshold    uint64
	MaxInvokeDepth            uint64
	SkipSignatureVerification bool
}

// WithOverrides returns configuration with the provided overrides applied to
// the defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		return &conf{
			rentLamportsPerByteYear: withOverride(overrides.RentLamportsPerByteYear, defaultRentLamportsPerByteYear),
			rentExemptionThreshold:  withOverride(overrides.RentExemptionThreshold, defaultRentExemptionThreshold),
			maxInvokeDepth:          withOverride(overrides.MaxInvokeDepth, defaultMaxInvokeDepth),
			verifySignatures:        wrapper.NewBoolConfig(memory.NewConfig(!overrides.SkipSignatureVerification), defaultVerifySignatures),
		}
	}
}

func withOverride(value, defaultValue uint64) config.Uint64 {
	if value == 0 {
		return wrapper.NewUint64Config(memory.NewConfig(nil), defaultValue)
	}
	return wrapper.NewUint64Config(memory.NewConfig(value), defaultValue)
}

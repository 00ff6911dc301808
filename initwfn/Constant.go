package initwfn

import G "gorgonia.org/gorgonia"

// OnesConfig implements a configuration of a weight initializer that
// sets all weights to 1
type OnesConfig struct{}

// NewOnes returns a new ones weight initializer
func NewOnes() (*InitWFn, error) {
	config := OnesConfig{}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (o OnesConfig) Type() Type {
	return Ones
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (o OnesConfig) Create() G.InitWFn {
	return G.Ones()
}

// ConstantConfig implements a configuration of a weight initializer
// that sets all weights to a fixed constant value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) (*InitWFn, error) {
	config := ConstantConfig{value}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (c ConstantConfig) Type() Type {
	return Constant
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (c ConstantConfig) Create() G.InitWFn {
	return G.ValuesOf(c.Value)
}

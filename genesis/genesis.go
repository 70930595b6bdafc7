// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"bytes"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

// Amount is a balance written in decimal or 0x prefixed hex.
type Amount uint256.Int

func NewAmount(v uint64) *Amount {
	return (*Amount)(uint256.NewInt(v))
}

func (a *Amount) Int() *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set((*uint256.Int)(a))
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return errors.Wrapf(err, "invalid amount %q", s)
	}
	*a = Amount(*v)
	return nil
}

func (a *Amount) MarshalYAML() (any, error) {
	return a.Int().Dec(), nil
}

// Params are the staking parameters. Zero fields take the defaults.
type Params struct {
	EpochLength         uint32  `yaml:"epochLength,omitempty"`
	MaxValidators       uint32  `yaml:"maxValidators,omitempty"`
	BaseRewardPerBlock  *Amount `yaml:"baseRewardPerBlock,omitempty"`
	ValidatorPercentage *uint64 `yaml:"validatorPercentage,omitempty"`
	GenesisSelfStake    *Amount `yaml:"genesisSelfStake,omitempty"`
}

// Account is an initial balance.
type Account struct {
	Address thor.Address `yaml:"address"`
	Balance *Amount      `yaml:"balance"`
}

// Genesis describes the initial state of a network.
type Genesis struct {
	Name       string         `yaml:"name"`
	Params     Params         `yaml:"params"`
	Validators []thor.Address `yaml:"validators"`
	Accounts   []Account      `yaml:"accounts"`
}

// Load reads a genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return Parse(data)
}

// Parse decodes and validates a YAML genesis document.
func Parse(data []byte) (*Genesis, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var gen Genesis
	if err := dec.Decode(&gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return &gen, nil
}

// Encode renders the genesis as YAML.
func (g *Genesis) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return nil, errors.Wrap(err, "encode genesis")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Config returns the staking parameters with defaults applied.
func (g *Genesis) Config() staker.Config {
	cfg := staker.DefaultConfig()
	if g.Params.EpochLength != 0 {
		cfg.EpochLength = g.Params.EpochLength
	}
	if g.Params.MaxValidators != 0 {
		cfg.MaxValidators = g.Params.MaxValidators
	}
	if g.Params.BaseRewardPerBlock != nil {
		cfg.BaseRewardPerBlock = g.Params.BaseRewardPerBlock.Int()
	}
	if g.Params.ValidatorPercentage != nil {
		cfg.ValidatorPercentage = *g.Params.ValidatorPercentage
	}
	if g.Params.GenesisSelfStake != nil {
		cfg.GenesisSelfStake = g.Params.GenesisSelfStake.Int()
	}
	return cfg
}

// Balances returns the initial balances.
func (g *Genesis) Balances() []staker.GenesisBalance {
	balances := make([]staker.GenesisBalance, 0, len(g.Accounts))
	for _, acc := range g.Accounts {
		balances = append(balances, staker.GenesisBalance{Account: acc.Address, Balance: acc.Balance.Int()})
	}
	return balances
}

// Validate checks the document is self consistent.
func (g *Genesis) Validate() error {
	cfg := g.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(g.Validators) == 0 {
		return errors.New("genesis needs at least one validator")
	}
	if len(g.Validators) > int(cfg.MaxValidators) {
		return errors.Errorf("%d validators exceed the maximum of %d", len(g.Validators), cfg.MaxValidators)
	}

	accounts := make(map[thor.Address]bool, len(g.Accounts))
	for _, acc := range g.Accounts {
		if accounts[acc.Address] {
			return errors.Errorf("duplicate account %v", acc.Address)
		}
		accounts[acc.Address] = true
	}
	seen := make(map[thor.Address]bool, len(g.Validators))
	for _, v := range g.Validators {
		if seen[v] {
			return errors.Errorf("duplicate validator %v", v)
		}
		seen[v] = true
	}
	return nil
}

// Build bootstraps the staker with this genesis.
func (g *Genesis) Build(s *staker.Staker) error {
	return s.Initialize(g.Validators, g.Balances())
}

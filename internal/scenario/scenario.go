// Package scenario loads step-by-step DEX scenarios from TOML, YAML or JSON
// files and plays them against a sandbox.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Actions understood by the runner.
const (
	ActionProvide            = "provide"
	ActionSwap               = "swap"
	ActionBurn               = "burn"
	ActionDirectAdd          = "direct_add"
	ActionRefund             = "refund"
	ActionCollectFees        = "collect_fees"
	ActionSetFees            = "set_fees"
	ActionLock               = "lock"
	ActionUnlock             = "unlock"
	ActionInitCodeUpgrade    = "init_code_upgrade"
	ActionInitAdminUpgrade   = "init_admin_upgrade"
	ActionCancelCodeUpgrade  = "cancel_code_upgrade"
	ActionCancelAdminUpgrade = "cancel_admin_upgrade"
	ActionFinalize           = "finalize"
	ActionAdvance            = "advance"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is an ordered list of steps.
type Scenario struct {
	Name  string `mapstructure:"name"`
	Steps []Step `mapstructure:"steps"`
}

// Step is one action. Users and tokens are names; the sandbox maps them to
// deterministic addresses. Amounts are decimal strings.
type Step struct {
	Action    string `mapstructure:"action"`
	User      string `mapstructure:"user"`
	Token     string `mapstructure:"token"`
	Other     string `mapstructure:"other"`
	Amount    string `mapstructure:"amount"`
	MinOut    string `mapstructure:"min_out"`
	Recipient string `mapstructure:"recipient"`
	Referrer  string `mapstructure:"referrer"`

	LPFee       uint8  `mapstructure:"lp_fee"`
	ProtocolFee uint8  `mapstructure:"protocol_fee"`
	RefFee      uint8  `mapstructure:"ref_fee"`
	FeeAddress  string `mapstructure:"fee_address"`

	Admin    string        `mapstructure:"admin"`
	Duration time.Duration `mapstructure:"duration"`

	Expect *Expect `mapstructure:"expect"`
}

// Expect is checked after a step. Map keys are "user/token" or "user".
type Expect struct {
	Reserves  []string          `mapstructure:"reserves"`
	Received  map[string]string `mapstructure:"received"`
	LPBalance map[string]string `mapstructure:"lp_balance"`
	Failed    *bool             `mapstructure:"failed"`
	Locked    *bool             `mapstructure:"locked"`
}

// Load reads a scenario file. The format follows the file extension.
func Load(path string) (*Scenario, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var sc Scenario
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&sc, hooks); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks that every step names the fields its action needs.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidScenario, i+1, st.Action, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	pair := func() error {
		if st.Token == "" || st.Other == "" {
			return errors.New("token and other are required")
		}
		if st.Token == st.Other {
			return errors.New("token and other must differ")
		}
		return nil
	}
	switch st.Action {
	case ActionProvide, ActionSwap, ActionBurn:
		if st.User == "" || st.Amount == "" {
			return errors.New("user and amount are required")
		}
		return pair()
	case ActionDirectAdd, ActionRefund:
		if st.User == "" {
			return errors.New("user is required")
		}
		return pair()
	case ActionCollectFees, ActionSetFees:
		return pair()
	case ActionInitAdminUpgrade:
		if st.Admin == "" {
			return errors.New("admin is required")
		}
	case ActionAdvance:
		if st.Duration <= 0 {
			return errors.New("duration must be positive")
		}
	case ActionLock, ActionUnlock, ActionInitCodeUpgrade,
		ActionCancelCodeUpgrade, ActionCancelAdminUpgrade, ActionFinalize:
	default:
		return errors.New("unknown action")
	}
	return nil
}

package scenarios

import (
	"math/big"

	"github.com/crytic/gorgon/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// vaultABI describes a deposit/withdraw vault. withdraw deliberately omits a bounds check, so the recorded balance
// wraps below zero when more than the deposited total is withdrawn.
const vaultABI = `[
	{"type": "function", "name": "deposit", "stateMutability": "nonpayable", "inputs": [{"name": "amount", "type": "uint256"}], "outputs": []},
	{"type": "function", "name": "withdraw", "stateMutability": "nonpayable", "inputs": [{"name": "amount", "type": "uint256"}], "outputs": []},
	{"type": "function", "name": "balance", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{"type": "function", "name": "deposited", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]}
]`

// vaultTestABI describes the invariant carrier for the vault scenario.
const vaultTestABI = `[
	{"type": "function", "name": "invariant_balanceIsBacked", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "", "type": "bool"}]},
	{"type": "function", "name": "afterInvariant", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
]`

// newVaultContract creates the vault contract definition.
func newVaultContract() *chain.ContractDefinition {
	return &chain.ContractDefinition{
		Name: "Vault",
		ABI:  mustParseABI(vaultABI),
		Handlers: map[string]chain.HandlerFunc{
			"deposit": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(1)
				amount := uint256.MustFromBig(inputs[0].(*big.Int))
				env.SetSlot("balance", new(uint256.Int).Add(env.GetSlot("balance"), amount))
				env.SetSlot("deposited", new(uint256.Int).Add(env.GetSlot("deposited"), amount))
				env.EmitLog("Deposit", env.Sender, amount.ToBig())
				return nil, nil
			},
			"withdraw": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.MarkLine(2)
				amount := uint256.MustFromBig(inputs[0].(*big.Int))
				// The missing bounds check: subtraction wraps around zero.
				env.SetSlot("balance", new(uint256.Int).Sub(env.GetSlot("balance"), amount))
				env.EmitLog("Withdraw", env.Sender, amount.ToBig())
				return nil, nil
			},
			"balance": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{env.GetSlot("balance").ToBig()}, nil
			},
			"deposited": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				return []any{env.GetSlot("deposited").ToBig()}, nil
			},
		},
	}
}

// newVaultTestContract creates the invariant carrier checking the vault at the provided address.
func newVaultTestContract(vault common.Address) *chain.ContractDefinition {
	return &chain.ContractDefinition{
		Name: "VaultTest",
		ABI:  mustParseABI(vaultTestABI),
		Handlers: map[string]chain.HandlerFunc{
			"invariant_balanceIsBacked": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				balanceOutputs, err := env.Call(vault, "balance")
				if err != nil {
					return nil, err
				}
				depositedOutputs, err := env.Call(vault, "deposited")
				if err != nil {
					return nil, err
				}
				balance := balanceOutputs[0].(*big.Int)
				deposited := depositedOutputs[0].(*big.Int)
				holds := balance.Cmp(deposited) <= 0
				if !holds {
					env.Fail()
				}
				return []any{holds}, nil
			},
			"afterInvariant": func(env *chain.CallEnv, inputs []any) ([]any, error) {
				env.EmitLog("AfterInvariant")
				return nil, nil
			},
		},
	}
}

// newVaultScenario deploys a vault whose withdraw lacks a bounds check, together with an invariant asserting the
// vault's balance never exceeds its deposited total. Any sequence ending in a withdrawal larger than the current
// balance breaks the invariant, and the minimal reproduction is a single oversized withdrawal.
func newVaultScenario() (*Scenario, error) {
	testChain := chain.NewTestChain()
	vaultAddress, err := testChain.DeployContract(newVaultContract())
	if err != nil {
		return nil, err
	}
	testAddress, err := testChain.DeployContract(newVaultTestContract(vaultAddress))
	if err != nil {
		return nil, err
	}
	if err = testChain.Seal(); err != nil {
		return nil, err
	}

	return &Scenario{
		Name:               "vault",
		Description:        "vault with an unchecked withdraw; the balance-is-backed invariant breaks on over-withdrawal",
		Chain:              testChain,
		TestAddress:        testAddress,
		InvariantMethod:    "invariant_balanceIsBacked",
		CallAfterInvariant: true,
		TargetAddresses:    []common.Address{vaultAddress},
	}, nil
}

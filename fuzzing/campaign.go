package fuzzing

import (
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/Masterminds/semver"
	"github.com/crytic/gorgon/chain"
	chainTypes "github.com/crytic/gorgon/chain/types"
	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/crytic/gorgon/fuzzing/config"
	"github.com/crytic/gorgon/fuzzing/contracts"
	"github.com/crytic/gorgon/fuzzing/valuegeneration"
	"github.com/crytic/gorgon/logging"
	"github.com/crytic/gorgon/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// Campaign drives one invariant fuzzing campaign: it executes runs of fuzzed call sequences against clones of a
// sealed executor, asserts the invariant after every state-changing call, and minimizes and replays the first
// failure found.
type Campaign struct {
	// ID uniquely identifies this campaign, e.g. in log output and reproducer files.
	ID uuid.UUID

	// Events describes the event system the campaign exposes to subscribers.
	Events CampaignEvents

	// logger describes the campaign's sub-logger.
	logger *logging.Logger

	// config describes the campaign parameters.
	config config.FuzzingConfig

	// invariant describes the invariant carrier being checked.
	invariant *InvariantContract

	// executor describes the sealed base executor runs are cloned from. It is never mutated by the campaign.
	executor chain.Executor

	// registry tracks the targets of fuzzed calls, growing as contracts are deployed mid-campaign.
	registry *contracts.TargetRegistry

	// valueSet accumulates interesting values harvested from execution results.
	valueSet *valuegeneration.ValueSet

	// generator produces fuzzed argument values.
	generator *valuegeneration.RandomValueGenerator

	// randomProvider offers the campaign's seeded source of randomness.
	randomProvider *rand.Rand

	// seed describes the seed the random provider was created with.
	seed int64

	// senders describes the pool of sender addresses fuzzed calls are sent from.
	senders []common.Address

	// metrics tracks the campaign's progress counters.
	metrics *CampaignMetrics

	// gasReport accumulates per-method gas usage.
	gasReport *GasReport

	// failures accumulates revert counts and the campaign's failure case.
	failures *InvariantFailures

	// innerSequence records the calls of the run currently executing.
	innerSequence *calls.InnerSequence

	// overrideSource optionally supplies the leading calls of every run instead of the generator.
	overrideSource *calls.InnerSequence

	// lastRunInputs holds the calls of the most recent fully completed run.
	lastRunInputs []*calls.CallMessage
}

// NewCampaign creates a campaign from the provided configuration, sealed executor, invariant carrier and initial
// targets. Returns the campaign, or an error if the configuration is invalid, the interpreter version does not
// satisfy the configured constraint, or no target offers fuzzable methods.
func NewCampaign(logger *logging.Logger, projectConfig *config.ProjectConfig, executor chain.Executor, invariant *InvariantContract, initialTargets []*contracts.Target) (*Campaign, error) {
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GlobalLogger
	}

	cfg := projectConfig.Fuzzing
	if cfg.RequiredInterpreterVersion != "" {
		constraint, err := semver.NewConstraint(cfg.RequiredInterpreterVersion)
		if err != nil {
			return nil, err
		}
		interpreterVersion, err := semver.NewVersion(executor.Version())
		if err != nil {
			return nil, errors.Wrap(err, "could not parse interpreter version")
		}
		if !constraint.Check(interpreterVersion) {
			return nil, errors.Errorf("interpreter version %s does not satisfy the required constraint '%s'", executor.Version(), cfg.RequiredInterpreterVersion)
		}
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	randomProvider := rand.New(rand.NewSource(seed))

	valueSet := valuegeneration.NewValueSet()
	if cfg.DictionaryPath != "" {
		if err := valueSet.LoadFromDictionary(cfg.DictionaryPath); err != nil {
			return nil, err
		}
	}

	senders, err := utils.HexStringsToAddresses(cfg.SenderAddresses)
	if err != nil {
		return nil, err
	}
	for _, sender := range senders {
		valueSet.AddAddress(sender)
	}

	registry := contracts.NewTargetRegistry()
	registry.Exclude(invariant.Address)
	candidateMethods := 0
	for _, target := range initialTargets {
		registry.Add(target)
		candidateMethods += len(target.CandidateMethods())
	}
	if candidateMethods == 0 {
		return nil, errors.New("campaign has no targets with fuzzable methods")
	}

	id := uuid.New()
	campaign := &Campaign{
		ID:             id,
		logger:         logger.NewSubLogger("campaign", id.String()),
		config:         cfg,
		invariant:      invariant,
		executor:       executor,
		registry:       registry,
		valueSet:       valueSet,
		generator:      valuegeneration.NewRandomValueGenerator(nil, valueSet, randomProvider),
		randomProvider: randomProvider,
		seed:           seed,
		senders:        senders,
		metrics:        NewCampaignMetrics(),
		gasReport:      NewGasReport(),
		failures:       NewInvariantFailures(),
		innerSequence:  calls.NewInnerSequence(),
	}
	return campaign, nil
}

// Metrics returns the campaign's progress counters, readable while the campaign runs.
func (c *Campaign) Metrics() *CampaignMetrics {
	return c.metrics
}

// GasReport returns the campaign's per-method gas report.
func (c *Campaign) GasReport() *GasReport {
	return c.gasReport
}

// Registry returns the campaign's target registry.
func (c *Campaign) Registry() *contracts.TargetRegistry {
	return c.registry
}

// InnerSequence returns the recording of the run currently executing.
func (c *Campaign) InnerSequence() *calls.InnerSequence {
	return c.innerSequence
}

// Seed returns the seed of the campaign's random provider.
func (c *Campaign) Seed() int64 {
	return c.seed
}

// SetCallOverride supplies a sequence whose calls lead every run in place of generated ones. Once the override is
// exhausted, generation resumes as usual. It must be set before Run is called.
func (c *Campaign) SetCallOverride(source *calls.InnerSequence) {
	c.overrideSource = source
}

// Run executes the campaign until every run completes, a failure is found, or the provided context is cancelled.
// Cancellation is cooperative: the campaign stops between calls and returns the result of the work done so far.
// Returns the campaign result, or an error if the interpreter or campaign infrastructure failed.
func (c *Campaign) Run(ctx context.Context) (*InvariantFuzzTestResult, error) {
	c.Events.CampaignStarted.Publish(CampaignStartedEvent{Campaign: c})
	c.logger.Info(fmt.Sprintf(
		"fuzzing %s with %d target(s), %d run(s) of depth %d, seed %d",
		c.invariant.InvariantMethod.Sig, c.registry.Count(), c.config.Runs, c.config.Depth, c.seed,
	))

	// The invariant must hold on the initial state before any fuzzing is worthwhile.
	initialExecutor, err := c.executor.Clone()
	if err != nil {
		return nil, err
	}
	holds, reason, _, err := callInvariant(initialExecutor, c.invariant)
	if err != nil {
		return nil, err
	}
	if !holds {
		failure := c.newFailureCase(FailureKindBrokenInvariant, fmt.Sprintf("%s on initial state", reason), nil, 0, 0)
		c.failures.SetFailure(failure)
		c.Events.FailureDiscovered.Publish(FailureDiscoveredEvent{Campaign: c, Failure: failure})
		return c.finalizeResult(false)
	}

	cancelled := false
runs:
	for run := uint64(0); run < c.config.Runs; run++ {
		if utils.CheckContextDone(ctx) {
			cancelled = true
			break
		}

		executor, err := c.executor.Clone()
		if err != nil {
			return nil, err
		}
		c.innerSequence.Reset()
		sequence := make(calls.CallSequence, 0, c.config.Depth)

		for depth := uint64(0); depth < c.config.Depth; depth++ {
			if utils.CheckContextDone(ctx) {
				cancelled = true
				break runs
			}

			element, err := c.nextCall(int(depth))
			if err != nil {
				return nil, err
			}
			callResult, err := executor.CallRaw(element.Call.From, element.Call.To, element.Call.Data, element.Call.Value)
			if err != nil {
				return nil, errors.Wrap(err, "fuzzed call failed to execute")
			}
			element.ExecutionResult = callResult
			sequence = append(sequence, element)
			c.innerSequence.Append(element.Call.Clone())
			c.collectData(element, callResult)

			if callResult.Reverted {
				c.failures.RecordRevert(callResult.RevertReason)
				c.metrics.AddRevertsObserved(1)
			}

			verdict, err := classifyCallResult(executor, c.invariant, c.registry.Targets(), callResult, c.config.FailOnRevert)
			if err != nil {
				return nil, err
			}
			// A successful call which left a target's failure flag raised counts toward the revert tally just
			// like a revert does.
			if verdict.handlerFailure != "" {
				c.failures.RecordRevert(verdict.handlerFailure)
				c.metrics.AddRevertsObserved(1)
			}
			if verdict.verdict == verdictContinue {
				continue
			}

			kind := FailureKindBrokenInvariant
			if verdict.verdict == verdictReverted {
				kind = FailureKindRevert
			}
			failure := c.newFailureCase(kind, verdict.reason, sequence, run, depth)
			if c.failures.SetFailure(failure) {
				c.logger.Error(fmt.Sprintf("failure found: %s", failure.String()))
				if err = c.minimizeFailure(ctx, failure); err != nil {
					return nil, err
				}
				c.Events.FailureDiscovered.Publish(FailureDiscoveredEvent{Campaign: c, Failure: failure})
			}
			break runs
		}

		// The afterInvariant hook observes the end of every clean run; its outcome never affects classification.
		if _, err = callAfterInvariant(executor, c.invariant); err != nil {
			return nil, err
		}

		c.metrics.AddRunsCompleted(1)
		c.lastRunInputs = c.innerSequence.Snapshot()
		c.Events.RunCompleted.Publish(CampaignRunCompletedEvent{Campaign: c, Run: run})
	}

	return c.finalizeResult(cancelled)
}

// nextCall obtains the call to execute at the provided depth of a run, consulting the override source first and the
// generator otherwise.
func (c *Campaign) nextCall(depth int) (*calls.CallSequenceElement, error) {
	if c.overrideSource != nil && depth < c.overrideSource.Len() {
		call := c.overrideSource.At(depth).Clone()
		return calls.NewCallSequenceElement(c.registry.Get(call.To), call), nil
	}
	return c.generateCall()
}

// generateCall generates a fuzzed call uniformly across all candidate methods of all registered targets.
// Returns an error if no target offers a fuzzable method.
func (c *Campaign) generateCall() (*calls.CallSequenceElement, error) {
	targets := c.registry.Targets()
	candidateCount := 0
	for _, target := range targets {
		candidateCount += len(target.CandidateMethods())
	}
	if candidateCount == 0 {
		return nil, errors.New("could not generate a call: no fuzzable methods are registered")
	}

	pick := c.randomProvider.Intn(candidateCount)
	for _, target := range targets {
		methods := target.CandidateMethods()
		if pick >= len(methods) {
			pick -= len(methods)
			continue
		}
		method := methods[pick]
		args := make([]any, len(method.Inputs))
		for i, input := range method.Inputs {
			args[i] = valuegeneration.GenerateAbiValue(c.generator, &input.Type)
		}
		sender := c.senders[c.randomProvider.Intn(len(c.senders))]
		msg, err := calls.NewCallMessageWithAbiValues(sender, target.Address, big.NewInt(0), &method, args)
		if err != nil {
			return nil, err
		}
		return calls.NewCallSequenceElement(target, msg), nil
	}
	return nil, errors.New("could not generate a call: candidate selection out of range")
}

// collectData harvests metrics, interesting values and newly deployed targets from an executed call.
func (c *Campaign) collectData(element *calls.CallSequenceElement, result *chainTypes.ExecutionResult) {
	c.metrics.AddCallsExecuted(1)
	c.valueSet.AddExecutionResult(result)

	if method, err := element.Method(); err == nil && element.Target != nil {
		c.gasReport.Record(fmt.Sprintf("%s.%s", element.Target.Name, method.Sig), result.GasUsed)
	}

	added := c.registry.ExtendFromResult(result)
	if added > 0 {
		c.metrics.AddTargetsDiscovered(uint64(added))
		for _, created := range result.Trace.CreatedContracts() {
			if target := c.registry.Get(created.Address); target != nil {
				c.Events.TargetDiscovered.Publish(TargetDiscoveredEvent{Campaign: c, Target: target})
			}
		}
	}
}

// newFailureCase assembles a self-sufficient failure case from the current campaign state.
func (c *Campaign) newFailureCase(kind FailureKind, reason string, sequence calls.CallSequence, run uint64, depth uint64) *FailureCase {
	sequenceCopy := make(calls.CallSequence, len(sequence))
	copy(sequenceCopy, sequence)
	return &FailureCase{
		Kind:          kind,
		InvariantName: c.invariant.InvariantMethod.Sig,
		Reason:        reason,
		CallSequence:  sequenceCopy,
		InnerSequence: c.innerSequence.Snapshot(),
		Targets:       c.registry.Targets(),
		FuzzingConfig: c.config,
		Run:           run,
		Depth:         depth,
	}
}

// finalizeResult assembles the campaign result, replaying and persisting the failure case if one was recorded.
func (c *Campaign) finalizeResult(cancelled bool) (*InvariantFuzzTestResult, error) {
	result := &InvariantFuzzTestResult{
		CampaignID:        c.ID,
		FailureCase:       c.failures.Failure(),
		PassingRuns:       c.metrics.RunsCompleted(),
		Reverts:           c.failures.Reverts(),
		FirstRevertReason: c.failures.RevertReason(),
		Cancelled:         cancelled,
		LastRunInputs:     c.lastRunInputs,
		GasReport:         c.gasReport,
	}

	if result.FailureCase != nil {
		counterexamples, err := c.replayFailure(result.FailureCase)
		if err != nil {
			return nil, err
		}
		result.Counterexamples = counterexamples

		if c.config.ShowDecodedSequence && len(result.FailureCase.CallSequence) > 0 {
			c.logger.Info("failing call sequence:\n", result.FailureCase.CallSequence.Log())
		}
		if c.config.ReproducerDirectory != "" {
			path, err := writeReproducer(c.config.ReproducerDirectory, c.ID, c.seed, result.FailureCase)
			if err != nil {
				c.logger.Error("could not write reproducer file", err)
			} else {
				result.ReproducerPath = path
			}
		}
	}

	if c.config.DictionaryPath != "" {
		if err := c.valueSet.SaveToDictionary(c.config.DictionaryPath); err != nil {
			c.logger.Error("could not save value dictionary", err)
		}
	}
	return result, nil
}

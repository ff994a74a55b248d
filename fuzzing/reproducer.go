package fuzzing

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/crytic/gorgon/fuzzing/calls"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// reproducerFile describes the persisted form of a failure case: enough to re-execute the failing sequence against
// the same scenario without the campaign that found it.
type reproducerFile struct {
	// CampaignID describes the campaign which found the failure.
	CampaignID string `cbor:"campaignId"`

	// Seed describes the random seed the campaign ran with.
	Seed int64 `cbor:"seed"`

	// Kind describes the class of the failure.
	Kind string `cbor:"kind"`

	// InvariantName describes the signature of the violated invariant.
	InvariantName string `cbor:"invariantName"`

	// Reason describes why the campaign failed.
	Reason string `cbor:"reason"`

	// Calls describes the minimized failing call sequence.
	Calls []reproducerCall `cbor:"calls"`
}

// reproducerCall describes one persisted call of a failing sequence.
type reproducerCall struct {
	// From describes the sender address bytes.
	From []byte `cbor:"from"`

	// To describes the target address bytes.
	To []byte `cbor:"to"`

	// Value describes the attached native value in decimal form.
	Value string `cbor:"value"`

	// Data describes the ABI-packed calldata.
	Data []byte `cbor:"data"`
}

// writeReproducer persists a failure case into the provided directory as a CBOR file named after the campaign.
// Returns the written file's path, or an error if one occurred.
func writeReproducer(directory string, campaignID uuid.UUID, seed int64, failure *FailureCase) (string, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", errors.Wrap(err, "could not create reproducer directory")
	}

	file := reproducerFile{
		CampaignID:    campaignID.String(),
		Seed:          seed,
		Kind:          string(failure.Kind),
		InvariantName: failure.InvariantName,
		Reason:        failure.Reason,
		Calls:         make([]reproducerCall, len(failure.CallSequence)),
	}
	for i, element := range failure.CallSequence {
		file.Calls[i] = reproducerCall{
			From:  element.Call.From.Bytes(),
			To:    element.Call.To.Bytes(),
			Value: element.Call.Value.String(),
			Data:  element.Call.Data,
		}
	}

	b, err := cbor.Marshal(file, cbor.EncOptions{})
	if err != nil {
		return "", errors.Wrap(err, "could not encode reproducer")
	}
	path := filepath.Join(directory, fmt.Sprintf("failure-%s.cbor", campaignID.String()))
	if err = os.WriteFile(path, b, 0644); err != nil {
		return "", errors.Wrap(err, "could not write reproducer")
	}
	return path, nil
}

// readReproducer loads a persisted failure case and rebuilds its call messages.
// Returns the file contents and the decoded calls, or an error if one occurred.
func readReproducer(path string) (*reproducerFile, []*calls.CallMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not read reproducer")
	}
	var file reproducerFile
	if err = cbor.Unmarshal(b, &file); err != nil {
		return nil, nil, errors.Wrap(err, "could not decode reproducer")
	}

	messages := make([]*calls.CallMessage, len(file.Calls))
	for i, call := range file.Calls {
		value, ok := new(big.Int).SetString(call.Value, 10)
		if !ok {
			return nil, nil, errors.Errorf("reproducer call %d holds a malformed value: %q", i, call.Value)
		}
		messages[i] = calls.NewCallMessage(
			common.BytesToAddress(call.From),
			common.BytesToAddress(call.To),
			value,
			call.Data,
		)
	}
	return &file, messages, nil
}

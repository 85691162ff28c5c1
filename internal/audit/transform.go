package audit

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"voteScope/internal/dao"
	"voteScope/internal/model"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

func buildActionRecord(runID string, chainID uint64, category dao.VoteCategory, v *voting.Vote, action vote.DecodedAction, ingestedAt time.Time) model.ActionRecord {
	rec := model.ActionRecord{
		RunID:       runID,
		ChainID:     chainID,
		Category:    category.String(),
		VoteID:      v.ID,
		ActionIndex: action.Index,
		Executed:    v.Executed,
		StartDate:   uint64(v.StartDate.Unix()),
		Target:      action.Target.Hex(),
		Calldata:    hexutil.Encode(action.Calldata),
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
	if action.Agent != nil {
		rec.Agent = action.Agent.Hex()
	}
	if action.Value != nil {
		rec.Value = action.Value.String()
	}
	if action.Err != nil {
		rec.Error = action.Err.Error()
		return rec
	}

	rec.Function = action.Function()
	rec.Signature = action.Call.Entry.Signature()
	for _, in := range action.Inputs() {
		rec.Inputs = append(rec.Inputs, model.ActionInput{Name: in.Name, Type: in.Type, Value: in.Value.String()})
	}
	switch {
	case action.Call.Insufficient:
		rec.Warning = "insufficient calldata"
	case action.Call.TrailingBytes > 0:
		rec.Warning = fmt.Sprintf("%d trailing bytes", action.Call.TrailingBytes)
	}
	return rec
}

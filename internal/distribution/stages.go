/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package distribution

// Stage marks how far a request progressed. Stages only move forward.
type Stage string

const (
	StageReceived             Stage = "received"
	StagePipelineChecked      Stage = "pipeline-checked"
	StageRecordCreated        Stage = "record-created"
	StageAmbassadorLegPending Stage = "ambassador-leg-pending"
	StageAmbassadorLegDone    Stage = "ambassador-leg-done"
	StageRecipientLegPending  Stage = "recipient-leg-pending"
	StageRecipientLegDone     Stage = "recipient-leg-done"
	StageReconciled           Stage = "reconciled"
)

var stageOrder = map[Stage]int{
	StageReceived:             0,
	StagePipelineChecked:      1,
	StageRecordCreated:        2,
	StageAmbassadorLegPending: 3,
	StageAmbassadorLegDone:    4,
	StageRecipientLegPending:  5,
	StageRecipientLegDone:     6,
	StageReconciled:           7,
}

func (s Stage) before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

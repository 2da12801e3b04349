package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/banshee-data/framesync/internal/config"
	"github.com/banshee-data/framesync/internal/db"
	"github.com/banshee-data/framesync/internal/synchro"
	"github.com/banshee-data/framesync/internal/synchro/align"
	"github.com/banshee-data/framesync/internal/synchro/frames"
	"github.com/banshee-data/framesync/internal/synchro/levels"
	"github.com/banshee-data/framesync/internal/synchro/repair"
	"github.com/banshee-data/framesync/internal/version"
)

// inputs are the loaded files and search settings of one run.
type inputs struct {
	trace       []float64
	reference   *synchro.Stimulus // nil unless correcting
	stimList    []int             // nil unless classifying by list
	startSample int               // negative disables the start search
	search      int
}

type pipelineResult struct {
	low, high     float64
	detection     *frames.Detection
	clustering    levels.Clustering
	list          *levels.ListResult
	matchPosition int
	nextRun       int   // first sample of a later run, or -1
	recorded      []int // recorded levels aligned with the reference start
	correction    *repair.Correction
	trimmed       *repair.Trimmed
}

// runPipeline detects frames, classifies them and, when a reference is
// given, corrects and trims it.
func runPipeline(cfg *config.SyncConfig, in inputs) (*pipelineResult, error) {
	res := &pipelineResult{}

	if cfg.GetAutoThreshold() {
		res.low, res.high = frames.EstimateThresholds(in.trace)
		log.Printf("estimated thresholds: low=%.1f high=%.1f", res.low, res.high)
	} else {
		res.low, res.high = cfg.GetLowThreshold(), cfg.GetHighThreshold()
	}

	params := frames.Params{
		LowThreshold:  res.low,
		HighThreshold: res.high,
		Increment:     cfg.GetIncrement(),
		Precision:     cfg.GetPrecision(),
		Reverse:       cfg.GetReverse(),
	}
	det, err := frames.DetectFrames(in.trace, params)
	if err != nil {
		return nil, fmt.Errorf("detect frames: %w", err)
	}
	res.detection = det
	if next := frames.NextRun(in.trace, det, params); next >= 0 {
		res.nextRun = next
		log.Printf("detection stopped after %d frames; trace continues with another run at sample %d (%d samples not processed)",
			det.Len(), next, len(in.trace)-next)
	} else {
		res.nextRun = -1
	}

	if in.stimList != nil {
		list := levels.ClusterByList(det.Signals, in.stimList)
		res.list = &list
		return res, nil
	}

	res.clustering = levels.ClusterFrameSignals(in.trace, det.Timepoints, cfg.GetNCluster())
	if in.reference == nil {
		return res, nil
	}
	ref := *in.reference

	if in.startSample >= 0 {
		pos, err := align.MatchStartingPosition(det.Timepoints, res.clustering.Levels, ref.Marker, in.startSample, in.search)
		if err != nil {
			return nil, fmt.Errorf("match starting position: %w", err)
		}
		res.matchPosition = pos
	}
	levelsFromStart := res.clustering.Levels[res.matchPosition:]
	res.recorded = levelsFromStart[:min(len(levelsFromStart), ref.Len())]

	strategy, err := cfg.GetStrategy()
	if err != nil {
		return nil, err
	}
	res.correction, err = repair.Correct(ref, res.recorded, repair.Options{
		Strategy: strategy,
		Align: align.Params{
			Basis:   cfg.GetSimilarityBasis(),
			InsDel:  cfg.GetInsDelPenalty(),
			Rowside: cfg.GetRowside(),
		},
		Window: cfg.GetMismatchWindow(),
	})
	if err != nil {
		return nil, fmt.Errorf("correct reference: %w", err)
	}

	last := cfg.GetTrimLast()
	if last == 0 {
		last = res.correction.Stimulus.Len()
	}
	if res.trimmed, err = res.correction.Trim(cfg.GetTrimFirst(), last); err != nil {
		return nil, fmt.Errorf("trim: %w", err)
	}
	return res, nil
}

// report is the JSON document written by the CLI.
type report struct {
	Version         string                 `json:"version"`
	LowThreshold    float64                `json:"low_threshold"`
	HighThreshold   float64                `json:"high_threshold"`
	Frames          int                    `json:"frames"`
	Timepoints      []int                  `json:"timepoints"`
	Levels          []int                  `json:"levels,omitempty"`
	LevelThresholds []float64              `json:"level_thresholds,omitempty"`
	Anomalies       []frames.TimingAnomaly `json:"anomalies,omitempty"`
	List            *levels.ListResult     `json:"list,omitempty"`
	MatchPosition   int                    `json:"match_position"`
	NextRun         int                    `json:"next_run"` // -1 when the trace holds a single run
	Correction      *correctionReport      `json:"correction,omitempty"`
}

type correctionReport struct {
	Strategy   repair.Strategy  `json:"strategy"`
	Alignment  *align.Alignment `json:"alignment,omitempty"`
	Unresolved []int            `json:"unresolved"`
	// Stimulus and logs after trimming.
	*repair.Trimmed
}

func (r *pipelineResult) report() *report {
	out := &report{
		Version:         version.Version,
		LowThreshold:    r.low,
		HighThreshold:   r.high,
		Frames:          r.detection.Len(),
		Timepoints:      r.detection.Timepoints,
		Levels:          r.clustering.Levels,
		LevelThresholds: r.clustering.Thresholds,
		Anomalies:       r.detection.Anomalies,
		List:            r.list,
		MatchPosition:   r.matchPosition,
		NextRun:         r.nextRun,
	}
	if r.correction != nil {
		out.Correction = &correctionReport{
			Strategy:   r.correction.Strategy,
			Alignment:  r.correction.Alignment,
			Unresolved: r.correction.Unresolved,
			Trimmed:    r.trimmed,
		}
	}
	return out
}

// auditRecord summarises a correction for the audit store.
func (r *pipelineResult) auditRecord(tracePath, referencePath string, params json.RawMessage) *db.CorrectionRun {
	run := &db.CorrectionRun{
		TracePath:       tracePath,
		ReferencePath:   referencePath,
		Strategy:        r.correction.Strategy.String(),
		RecordedFrames:  len(r.recorded),
		ReferenceFrames: r.correction.Stimulus.Len(),
		Unresolved:      len(r.correction.Unresolved),
		ParamsJSON:      params,
	}
	if a := r.correction.Alignment; a != nil {
		run.Score, run.MaxOffset, run.Rowside = a.Score, a.MaxOffset, a.Rowside
	}
	return run
}

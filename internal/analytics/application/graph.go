package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// loopRecurrenceThreshold 循环流转告警阈值，严格大于该值才告警
const loopRecurrenceThreshold = 3

// TransferGraphAnalyzer 第三层：流转图谱分析（每日批处理）。
// 按工单把移交记录串成时间有序的流转链，检测 A→B→C→A 形式的
// 三元循环，跨工单重复超过阈值即告警。
type TransferGraphAnalyzer struct {
	records domain.RecordRepository
	emitter *AlertEmitter
	logger  *slog.Logger
}

// NewTransferGraphAnalyzer 创建流转图谱分析器
func NewTransferGraphAnalyzer(records domain.RecordRepository, emitter *AlertEmitter, logger *slog.Logger) *TransferGraphAnalyzer {
	return &TransferGraphAnalyzer{
		records: records,
		emitter: emitter,
		logger:  logger,
	}
}

// transferCycle 检测到的三元循环
type transferCycle struct {
	first  string
	second string
	third  string
	count  int
}

// Run 分析时间窗内的移交记录
func (a *TransferGraphAnalyzer) Run(ctx context.Context, from, to time.Time) error {
	transfers, err := a.records.ListTransfersBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load transfers: %w", err)
	}
	if len(transfers) == 0 {
		return nil
	}

	cycles := detectCycles(transfers)

	emitted := 0
	for _, cycle := range cycles {
		if cycle.count <= loopRecurrenceThreshold {
			continue
		}
		emitted++
		a.emitter.Emit(ctx, cycle.first, domain.AlertCircularResolutionLoop, domain.SeverityCritical,
			fmt.Sprintf("circular resolution loop %s -> %s -> %s -> %s recurred %d times (loop_count=%d)",
				cycle.first, cycle.second, cycle.third, cycle.first, cycle.count, cycle.count))
	}

	a.logger.InfoContext(ctx, "transfer graph analysis completed",
		"transfers", len(transfers),
		"cycles", len(cycles),
		"alerts", emitted,
	)
	return nil
}

// detectCycles 统计跨工单的三元循环出现次数。
// 输入必须按移交时间升序；每个工单的流转链内取连续三段移交，
// 终点回到起点即构成一次循环。
func detectCycles(transfers []*domain.ComplaintTransfer) []transferCycle {
	chains := make(map[string][]*domain.ComplaintTransfer)
	order := make([]string, 0)
	for _, t := range transfers {
		if _, seen := chains[t.ComplaintID]; !seen {
			order = append(order, t.ComplaintID)
		}
		chains[t.ComplaintID] = append(chains[t.ComplaintID], t)
	}

	counts := make(map[string]*transferCycle)
	for _, complaintID := range order {
		chain := chains[complaintID]
		for i := 0; i+3 <= len(chain); i++ {
			t0, t1, t2 := chain[i], chain[i+1], chain[i+2]
			if t0.ToOfficerID != t1.FromOfficerID || t1.ToOfficerID != t2.FromOfficerID {
				continue
			}
			if t2.ToOfficerID != t0.FromOfficerID {
				continue
			}
			a, b, c := t0.FromOfficerID, t1.FromOfficerID, t2.FromOfficerID
			if a == b || b == c || a == c {
				continue
			}
			key := strings.Join([]string{a, b, c}, "|")
			if cycle, ok := counts[key]; ok {
				cycle.count++
			} else {
				counts[key] = &transferCycle{first: a, second: b, third: c, count: 1}
			}
		}
	}

	cycles := make([]transferCycle, 0, len(counts))
	for _, c := range counts {
		cycles = append(cycles, *c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].count > cycles[j].count })
	return cycles
}

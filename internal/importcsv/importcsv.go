// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package importcsv parses the shop's flat job/routing export (the
// POST /api/jobs/import payload) and hands back Job and
// RoutingOperation records for the scheduler to place. It is
// transport-adjacent, not part of the scheduling core.
package importcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// requiredColumns lists every header the shop's export tool emits. A
// file missing any of these is rejected before a single row is
// parsed.
var requiredColumns = []string{
	"Job", "Customer", "Est_Required_Qty", "WC_Vendor", "Lead_Days",
	"Order_Date", "Promised_Date", "Est Total Hours", "Link_Material",
	"Status", "Material", "Sequence", "AMT Workcenter & Vendor", "Vendor",
	"Part Description",
}

// dateLayout is the wall-clock date format the shop's export tool emits.
const dateLayout = "01/02/2006"

// Result is one imported job: its header fields plus the routing
// operations accumulated from every CSV row sharing its Job number,
// and any outsourced-operation side records the routing implies.
type Result struct {
	Job        model.Job
	Outsourced []model.OutsourcedOperation
}

// Import parses r as the job/routing export CSV and returns one
// Result per distinct Job number, in first-seen order. Each CSV row
// is one routing operation; rows sharing a Job number fold into a
// single Job with a multi-step routing.
func Import(r io.Reader) ([]Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	order := []string{}
	byJob := map[string]*Result{}

	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", rowNum, err)
		}
		rowNum++

		jobNumber := get(row, col, "Job")
		if jobNumber == "" {
			continue
		}
		result, ok := byJob[jobNumber]
		if !ok {
			job, err := parseJobHeader(row, col, jobNumber)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
			result = &Result{Job: job}
			byJob[jobNumber] = result
			order = append(order, jobNumber)
		}

		op, outsourced, err := parseRoutingRow(row, col, jobNumber)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		result.Job.Routing = append(result.Job.Routing, op)
		if outsourced != nil {
			result.Outsourced = append(result.Outsourced, *outsourced)
		}
	}

	out := make([]Result, 0, len(order))
	for _, jobNumber := range order {
		out = append(out, *byJob[jobNumber])
	}
	return out, nil
}

func indexColumns(header []string) (map[string]int, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := idx[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func get(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseJobHeader(row []string, col map[string]int, jobNumber string) (model.Job, error) {
	qty, err := parseInt(get(row, col, "Est_Required_Qty"))
	if err != nil {
		return model.Job{}, fmt.Errorf("Est_Required_Qty: %w", err)
	}
	leadDays, err := parseInt(get(row, col, "Lead_Days"))
	if err != nil {
		return model.Job{}, fmt.Errorf("Lead_Days: %w", err)
	}
	orderDate, err := parseDate(get(row, col, "Order_Date"))
	if err != nil {
		return model.Job{}, fmt.Errorf("Order_Date: %w", err)
	}
	promisedDate, err := parseDate(get(row, col, "Promised_Date"))
	if err != nil {
		return model.Job{}, fmt.Errorf("Promised_Date: %w", err)
	}

	return model.Job{
		ID:              model.NewID(),
		JobNumber:       jobNumber,
		PartNumber:      get(row, col, "Part Description"),
		Customer:        get(row, col, "Customer"),
		Quantity:        qty,
		PromisedDate:    promisedDate,
		DueDate:         promisedDate,
		OrderDate:       orderDate,
		CreatedDate:     orderDate,
		LeadDays:        leadDays,
		HasMaterial:     strings.EqualFold(get(row, col, "Material"), "yes") || strings.EqualFold(get(row, col, "Material"), "true"),
		OutsourceVendor: get(row, col, "WC_Vendor"),
		Status:          model.JobStatusOpen,
	}, nil
}

func parseRoutingRow(row []string, col map[string]int, jobNumber string) (model.RoutingOperation, *model.OutsourcedOperation, error) {
	seq, err := parseInt(get(row, col, "Sequence"))
	if err != nil {
		return model.RoutingOperation{}, nil, fmt.Errorf("Sequence: %w", err)
	}
	hours, err := parseFloat(get(row, col, "Est Total Hours"))
	if err != nil {
		return model.RoutingOperation{}, nil, fmt.Errorf("Est Total Hours: %w", err)
	}

	workcenter := get(row, col, "AMT Workcenter & Vendor")
	vendor := get(row, col, "Vendor")
	machineType, isOutsource := classifyWorkcenter(workcenter)

	// The export names only a workcenter, never a capability; the
	// baseline capability for the classified machine type keeps the
	// imported operation placeable, with upward substitution still open.
	op := model.RoutingOperation{
		ID:                 model.NewID(),
		JobID:              jobNumber,
		Sequence:           seq,
		Name:               workcenter,
		MachineType:        machineType,
		RequiredCapability: model.BaselineCapability(machineType),
		EstimatedHours:     hours,
	}
	switch machineType {
	case model.MachineTypeSaw:
		op.OperationType = model.OperationTypeSaw
	case model.MachineTypeWaterjet:
		op.OperationType = model.OperationTypeWaterjet
	}

	if !isOutsource {
		return op, nil, nil
	}
	leadDays, err := parseInt(get(row, col, "Lead_Days"))
	if err != nil {
		return model.RoutingOperation{}, nil, fmt.Errorf("Lead_Days: %w", err)
	}
	return op, &model.OutsourcedOperation{
		ID:          model.NewID(),
		JobID:       jobNumber,
		Sequence:    seq,
		Vendor:      vendor,
		Description: workcenter,
		LeadDays:    leadDays,
	}, nil
}

// classifyWorkcenter buckets the shop's free-text workcenter column
// into a semantic MachineType. Outsourced and
// inspection rows are recognized by keyword the way the shop's own
// export already encodes them (no enum column exists in the source
// CSV format).
func classifyWorkcenter(workcenter string) (model.MachineType, bool) {
	lower := strings.ToLower(workcenter)
	switch {
	case strings.Contains(lower, "outsource") || strings.Contains(lower, "vendor") || strings.Contains(lower, "plating") || strings.Contains(lower, "anodize"):
		return model.MachineTypeOutsource, true
	case strings.Contains(lower, "inspect"):
		return model.MachineTypeInspect, false
	case strings.Contains(lower, "mill") || strings.Contains(lower, "vmc"):
		return model.MachineTypeMill, false
	case strings.Contains(lower, "lathe") || strings.Contains(lower, "turn"):
		return model.MachineTypeLathe, false
	case strings.Contains(lower, "waterjet"):
		return model.MachineTypeWaterjet, false
	case strings.Contains(lower, "saw") || strings.Contains(lower, "cut"):
		return model.MachineTypeSaw, false
	default:
		return model.MachineTypeMill, false
	}
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

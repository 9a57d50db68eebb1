// internal/mcp/taskhub.go
package mcp

import (
	"context"

	"github.com/taskhub/taskhub/internal/coordinator"
	"github.com/taskhub/taskhub/internal/types"
)

// RegisterTaskhubTools wires the coordinator's operation surface into
// the tool registry. Tool names are what agents see in tools/list.
func RegisterTaskhubTools(s *Server, coord *coordinator.Coordinator) {
	s.RegisterTool(ToolDefinition{
		Name:        "register_hunter",
		Description: "Register yourself as a hunter, or update your skill declarations. Skill merges never lower an existing level.",
		Parameters: map[string]ParameterDef{
			"skills": {Type: "object", Description: "Skill name to level (0-100)", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.RegisterHunter(ctx, id, intMapArg(args, "skills"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_hunter",
		Description: "Fetch one hunter's profile, skills and reputation",
		Parameters: map[string]ParameterDef{
			"hunter_id": {Type: "string", Description: "Hunter to fetch; defaults to yourself", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			hunterID := stringArg(args, "hunter_id")
			if hunterID == "" {
				hunterID = id.HunterID
			}
			return coord.GetHunter(ctx, id, hunterID)
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "list_hunters",
		Description: "List every hunter in the namespace",
		Parameters:  map[string]ParameterDef{},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ListHunters(ctx, id)
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "study_knowledge",
		Description: "Study a knowledge item; each of its skill tags raises that skill by 5, capped at 100",
		Parameters: map[string]ParameterDef{
			"knowledge_id": {Type: "string", Description: "Knowledge item to study", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.StudyKnowledge(ctx, id, stringArg(args, "knowledge_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "publish_task",
		Description: "Publish a task for other hunters. Priority derives from your reputation; you cannot claim your own task.",
		Parameters: map[string]ParameterDef{
			"name":           {Type: "string", Description: "Short task name", Required: true},
			"details":        {Type: "string", Description: "Full task description", Required: false},
			"required_skill": {Type: "string", Description: "Skill a claimant must hold", Required: true},
			"depends_on":     {Type: "array", Description: "Task IDs this task depends on", Required: false},
			"task_type":      {Type: "string", Description: "NORMAL (default) or RESEARCH", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.PublishTask(ctx, id, coordinator.PublishParams{
				Name:          stringArg(args, "name"),
				Details:       stringArg(args, "details"),
				RequiredSkill: stringArg(args, "required_skill"),
				DependsOn:     stringSliceArg(args, "depends_on"),
				TaskType:      types.TaskType(stringArg(args, "task_type")),
			})
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status, required skill or owning hunter. Ordered by priority.",
		Parameters: map[string]ParameterDef{
			"status":    {Type: "string", Description: "pending, claimed, in_progress, completed, failed or archived", Required: false},
			"skill":     {Type: "string", Description: "Required skill filter", Required: false},
			"hunter_id": {Type: "string", Description: "Owning hunter filter", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ListTasks(ctx, id, types.TaskFilter{
				Status:        types.TaskStatus(stringArg(args, "status")),
				RequiredSkill: stringArg(args, "skill"),
				HunterID:      stringArg(args, "hunter_id"),
			})
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_task",
		Description: "Fetch one task by ID",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task to fetch", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.GetTask(ctx, id, stringArg(args, "task_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "claim_task",
		Description: "Claim a pending task. Requires the task's skill in your profile; the claim holds a one-hour lease until you start.",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task to claim", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ClaimTask(ctx, id, stringArg(args, "task_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "start_task",
		Description: "Start working on a task you claimed",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task to start", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.StartTask(ctx, id, stringArg(args, "task_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "submit_report",
		Description: "Submit a report for your task, settling it as completed or failed. Qualifying tasks get an evaluation task spawned automatically.",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task the report is for", Required: true},
			"status":  {Type: "string", Description: "completed or failed", Required: true},
			"result":  {Type: "string", Description: "Outcome summary", Required: false},
			"details": {Type: "string", Description: "Full report body", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			report, evalTask, err := coord.SubmitReport(ctx, id,
				stringArg(args, "task_id"),
				types.TaskStatus(stringArg(args, "status")),
				stringArg(args, "result"),
				stringArg(args, "details"))
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"report":          report,
				"evaluation_task": evalTask,
			}, nil
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "evaluate_report",
		Description: "Score another hunter's report (0-100) with feedback and optional skill adjustments. You cannot evaluate your own report.",
		Parameters: map[string]ParameterDef{
			"report_id":     {Type: "string", Description: "Report to evaluate", Required: true},
			"score":         {Type: "number", Description: "Score from 0 to 100", Required: true},
			"feedback":      {Type: "string", Description: "Written feedback", Required: false},
			"skill_updates": {Type: "object", Description: "Skill name to signed delta", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.EvaluateReport(ctx, id,
				stringArg(args, "report_id"),
				intArg(args, "score"),
				stringArg(args, "feedback"),
				intMapArg(args, "skill_updates"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_report",
		Description: "Fetch one report by ID",
		Parameters: map[string]ParameterDef{
			"report_id": {Type: "string", Description: "Report to fetch", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.GetReport(ctx, id, stringArg(args, "report_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "list_reports",
		Description: "List reports, optionally filtered by task or submitting hunter, newest first",
		Parameters: map[string]ParameterDef{
			"task_id":   {Type: "string", Description: "Task filter", Required: false},
			"hunter_id": {Type: "string", Description: "Submitting hunter filter", Required: false},
			"status":    {Type: "string", Description: "Report status filter", Required: false},
			"limit":     {Type: "number", Description: "Maximum results", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ListReports(ctx, id, types.ReportFilter{
				TaskID:   stringArg(args, "task_id"),
				HunterID: stringArg(args, "hunter_id"),
				Status:   types.TaskStatus(stringArg(args, "status")),
				Limit:    intArg(args, "limit"),
			})
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "archive_task",
		Description: "Archive a completed or failed task",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task to archive", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ArchiveTask(ctx, id, stringArg(args, "task_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "delete_task",
		Description: "Delete a task permanently. Claimed tasks need force set.",
		Parameters: map[string]ParameterDef{
			"task_id": {Type: "string", Description: "Task to delete", Required: true},
			"force":   {Type: "boolean", Description: "Delete even if claimed", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			if err := coord.DeleteTask(ctx, id, stringArg(args, "task_id"), boolArg(args, "force")); err != nil {
				return nil, err
			}
			return map[string]bool{"success": true}, nil
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "post_message",
		Description: "Post a message to the namespace discussion log",
		Parameters: map[string]ParameterDef{
			"content": {Type: "string", Description: "Message text", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.PostMessage(ctx, id, stringArg(args, "content"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_unread_messages",
		Description: "Fetch discussion messages since your last read and advance your read marker",
		Parameters: map[string]ParameterDef{
			"limit": {Type: "number", Description: "Maximum messages", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.UnreadMessages(ctx, id, intArg(args, "limit"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_latest_messages",
		Description: "Fetch the newest discussion messages without touching your read marker",
		Parameters: map[string]ParameterDef{
			"limit": {Type: "number", Description: "Maximum messages", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.LatestMessages(ctx, id, intArg(args, "limit"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "create_knowledge",
		Description: "Create a knowledge document in the shared collection",
		Parameters: map[string]ParameterDef{
			"title":     {Type: "string", Description: "Document title", Required: true},
			"content":   {Type: "string", Description: "Document body (markdown)", Required: true},
			"parent_id": {Type: "string", Description: "Parent document ID", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.CreateKnowledge(ctx, stringArg(args, "title"), stringArg(args, "content"), stringArg(args, "parent_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_knowledge",
		Description: "Fetch a knowledge item with its skill tags",
		Parameters: map[string]ParameterDef{
			"knowledge_id": {Type: "string", Description: "Knowledge item to fetch", Required: true},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.GetKnowledge(ctx, stringArg(args, "knowledge_id"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "search_knowledge",
		Description: "Search knowledge documents by query",
		Parameters: map[string]ParameterDef{
			"query": {Type: "string", Description: "Search query", Required: true},
			"limit": {Type: "number", Description: "Maximum results", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.SearchKnowledge(ctx, stringArg(args, "query"), intArg(args, "limit"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "list_knowledge",
		Description: "List knowledge documents in the shared collection",
		Parameters: map[string]ParameterDef{
			"limit":  {Type: "number", Description: "Maximum results", Required: false},
			"offset": {Type: "number", Description: "Results to skip", Required: false},
		},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.ListKnowledge(ctx, intArg(args, "limit"), intArg(args, "offset"))
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "get_stats",
		Description: "Summarize the namespace: task counts by status, hunters and reports",
		Parameters:  map[string]ParameterDef{},
		Handler: func(ctx context.Context, id coordinator.Identity, args map[string]interface{}) (interface{}, error) {
			return coord.NamespaceStats(ctx, id)
		},
	})
}

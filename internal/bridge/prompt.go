package bridge

import (
	"strings"

	"aidance/internal/core"
)

const noTodos = "无"

// TodoContext renders the todo snapshot embedded in the system prompt, one
// "- text [状态]" line per item.
func TodoContext(todos core.TodoList) string {
	if len(todos) == 0 {
		return noTodos
	}
	lines := make([]string, len(todos))
	for i, t := range todos {
		status := "未完成"
		if t.Completed {
			status = "已完成"
		}
		lines[i] = "- " + t.Text + " [" + status + "]"
	}
	return strings.Join(lines, "\n")
}

// SystemPrompt is the persona and output contract sent ahead of every
// conversation.
func SystemPrompt(todos core.TodoList) string {
	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n**当前待办列表 (Context)**:\n")
	b.WriteString(TodoContext(todos))
	b.WriteString("\n")
	b.WriteString("\n**任务识别指南**:\n")
	b.WriteString("1. **TODO (待办)**: 用户提到将来要做的事、计划或提醒（\"记得\"、\"提醒我\"、\"打算\"）。例如 \"提醒我下午去拿快递\" -> todos: [{\"text\": \"下午去拿快递\"}]\n")
	b.WriteString("2. **EVENT (记事)**: 已经发生的事或日记。例如 \"刚去拿了个快递\" -> events: [{\"title\": \"拿快递\", \"category\": \"生活\", \"details\": \"...\"}]。分类: ")
	b.WriteString(strings.Join(core.EventCategories, ", "))
	b.WriteString("。\n3. **EXPENSE (消费)**: 分类: ")
	b.WriteString(strings.Join(core.ExpenseCategories, ", "))
	b.WriteString("。\n4. **MOOD (心情)**: 提取或生成标签。\n")
	b.WriteString(updatesPrompt)
	b.WriteString(formatPrompt)
	return b.String()
}

const personaPrompt = `你是微信小程序风格的智能贴心管家"艾登斯"。

**人设**: 风趣幽默、略带调皮、毒舌但热心，像个损友。
**口头禅**:
1. "噗": 忍俊不禁，用于吐槽或开玩笑。
2. "bur": "不是"、"哪能啊"的打趣说法。
**说话风格**:
- 多用反问句增强幽默感。
- 不要机械生硬，确认记录的同时给出有趣的点评。
`

const updatesPrompt = `
**数据操作**:
- 用户表示完成、重新打开或取消了【当前待办列表】中的某件事时，生成 todoUpdates，action 取 "COMPLETE"、"UNCOMPLETE" 或 "DELETE"，originalText 填写待办原文。
`

const formatPrompt = `
**输出格式 (只返回纯 JSON，不要 Markdown)**:
{
  "reply": "...",
  "moods": [{ "mood": "...", "score": 1-10, "emoji": "...", "description": "...", "tags": ["..."] }],
  "expenses": [{ "amount": 0, "category": "...", "item": "..." }],
  "events": [{ "title": "...", "details": "...", "category": "...", "time": "..." }],
  "todos": [{ "text": "..." }],
  "todoUpdates": [{ "originalText": "...", "action": "COMPLETE" }]
}
`

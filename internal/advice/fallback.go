package advice

import (
	"fmt"
	"strings"

	"smartspend/internal/analytics"
)

// Fallback answers a chat message from the aggregates alone. It is used when
// no API key is configured and when the upstream call fails, and is fully
// deterministic for a given summary and message.
func Fallback(message string, summary analytics.Summary) string {
	msg := strings.ToLower(message)

	var top *analytics.CategoryTotal
	if len(summary.Categories) > 0 {
		top = &summary.Categories[0]
	}

	switch {
	case strings.Contains(msg, "biggest") || strings.Contains(msg, "largest") || strings.Contains(msg, "top category"):
		if top == nil {
			return "Your biggest expense category is **N/A** with 0.00 spent.\n\nAdd some expenses to get insights!"
		}
		return fmt.Sprintf("Your biggest expense category is **%s** with %s spent.\n\nConsider reviewing your %s expenses to identify potential savings opportunities.",
			top.Category, top.Total, top.Category)

	case strings.Contains(msg, "save") || strings.Contains(msg, "saving"):
		return fmt.Sprintf("Here are some quick savings tips:\n\n1. **Review your top category**: Focus on reducing expenses in your highest spending category\n2. **Set a daily limit**: Cap discretionary spending with a small fixed daily amount\n3. **Track consistently**: Keep logging expenses to spot patterns\n4. **Use the 24-hour rule**: Wait 24 hours before non-essential purchases\n\nBased on your current spending (%s), aim to save 20-30%% of your income monthly.",
			summary.Total)

	case strings.Contains(msg, "budget") || strings.Contains(msg, "monthly"):
		total := summary.Total.Amount()
		return fmt.Sprintf("Based on your current spending pattern:\n\n**Suggested Monthly Budget:**\n- Essential Expenses: 50%% (%.2f)\n- Savings: 20%% (%.2f)\n- Wants/Entertainment: 20%% (%.2f)\n- Emergency Fund: 10%% (%.2f)\n\nStart with tracking your expenses for a full month to create a more accurate budget!",
			total*2.5, total*0.5, total*0.5, total*0.25)

	case strings.Contains(msg, "trend") || strings.Contains(msg, "pattern") || strings.Contains(msg, "analysis"):
		focus := "Keep adding expenses to see trends!"
		if top != nil {
			focus = fmt.Sprintf("Your spending is primarily focused on **%s** (%s). Consider diversifying or optimizing this category.", top.Category, top.Total)
		}
		return fmt.Sprintf("**Your Spending Analysis:**\n\n- Total tracked: %s\n- Transactions: %d\n- Average per transaction: %.2f\n\n%s",
			summary.Total, summary.Count, summary.Mean(), focus)
	}

	return "I can help you with:\n\n- **Spending analysis** - Ask \"What's my biggest expense category?\"\n- **Savings tips** - Ask \"How can I save more?\"\n- **Budget planning** - Ask \"Create a monthly budget\"\n- **Financial advice** - Ask any money-related question\n\nWhat specific aspect of your finances would you like help with?"
}

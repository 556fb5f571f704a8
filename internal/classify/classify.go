// Package classify holds the pure header-classification rules. Nothing here
// touches the network or returns errors: malformed input degrades to the
// non-matching default so one bad message cannot halt a scan.
package classify

import (
	"net/mail"
	"strings"
	"time"

	"mailreaper/internal/model"
)

// DefaultPriorityKeywords are subject substrings that mark a message as
// high stakes. Callers union these with the configured extra keywords;
// the list is data, not logic, and may be overridden wholesale.
var DefaultPriorityKeywords = []string{
	"job offer", "job opportunity", "interview", "we'd like to offer",
	"hiring", "salary", "annual compensation", "offer letter",
	"contract offer", "invoice", "payment due", "urgent",
	"deadline", "action required", "account suspended",
	"verify your", "security alert",
}

// Rule maps a keyword set to a category label. Rules are evaluated in
// declaration order and the first match wins, so earlier rules take
// priority when keyword sets overlap.
type Rule struct {
	Keywords []string
	Label    string
}

// CategoryRules is the ordered rule table Categorize evaluates against
// subject+sender.
var CategoryRules = []Rule{
	{[]string{"receipt", "order confirmation", "your order", "purchase", "shipment", "tracking number"}, "Shopping"},
	{[]string{
		"% off", "off today", "sale ends", "flash sale", "clearance", "shop now",
		"limited time", "exclusive offer", "special offer", "today only", "deal of",
		"free shipping", "new arrivals", "back in stock", "just for you", "don't miss",
		"save up to", "extra savings", "coupon", "promo code", "discount code",
		"you might like", "we picked these", "check out our", "shop the",
	}, "Store Promos"},
	{[]string{"github", "gitlab", "jira", "bitbucket", "jenkins", "pull request", "commit"}, "Dev Tools"},
	{[]string{"newsletter", "unsubscribe", "weekly digest", "monthly update", "our latest"}, "Newsletters"},
	{[]string{
		"charged", "you've been charged", "charge of",
		"subscription", "your subscription", "subscription renewal", "subscription confirmed",
		"billing", "your bill",
		"auto-renew", "autorenewal", "auto renewal", "renewal notice",
		"payment received", "payment confirmed", "payment processed", "payment successful",
		"monthly charge", "annual charge", "recurring charge",
		"your plan", "plan renewal",
	}, "Billing & Payments"},
	{[]string{"statement", "transaction", "bank", "credit card", "paypal", "wire transfer"}, "Finance"},
}

var jobKeywords = []string{
	// Recruiter outreach
	"recruiter", "recruiting", "talent acquisition", "i came across your profile",
	"your background", "your experience", "reach out",
	// Opportunities
	"job offer", "job opportunity", "new opportunity", "exciting opportunity",
	"open position", "open role", "we are hiring", "we're hiring", "join our team",
	"we'd like to offer", "offer letter",
	// Interviews and process
	"interview", "phone screen", "technical screen", "coding challenge",
	"take-home", "onsite", "virtual interview", "next steps",
	"your application", "application received", "application status",
	"applied for", "thank you for applying",
	// Compensation
	"salary", "compensation", "equity", "stock options", "benefits package",
	// Job alerts from platforms
	"job alert", "jobs matching", "jobs for you", "new jobs",
	"career opportunity", "career alert",
}

var jobSenders = []string{
	"linkedin", "indeed", "glassdoor", "ziprecruiter", "monster",
	"talent.com", "workopolis", "simplyhired", "careerbuilder",
	"lever.co", "greenhouse.io", "workday", "ashby", "rippling",
	"jobvite", "smartrecruiters", "icims", "taleo", "wellfound",
}

var automatedSenderPatterns = []string{
	"no-reply", "noreply", "do-not-reply", "donotreply",
	"notifications@", "notify@", "automated@", "mailer@",
	"bounce@", "postmaster@", "alert@", "alerts@",
	"news@", "newsletter@", "marketing@", "promo@",
	"support@", "hello@", "info@", "team@", "accounts@",
	"update@", "updates@", "service@", "system@",
}

// GetHeader returns the value of the first header whose name matches
// case-insensitively, or "" if absent.
func GetHeader(headers []model.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// IsPriority reports whether the message is protected: sender matches a
// configured priority sender substring, or the subject contains a priority
// keyword (built-in list plus extras).
func IsPriority(headers []model.Header, extraKeywords, prioritySenders []string) bool {
	sender := strings.ToLower(GetHeader(headers, "From"))
	for _, s := range prioritySenders {
		s = strings.ToLower(s)
		if s != "" && strings.Contains(sender, s) {
			return true
		}
	}

	subject := strings.ToLower(GetHeader(headers, "Subject"))
	for _, k := range DefaultPriorityKeywords {
		if strings.Contains(subject, strings.ToLower(k)) {
			return true
		}
	}
	for _, k := range extraKeywords {
		if k != "" && strings.Contains(subject, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// IsNewsletter reports whether a non-empty List-Unsubscribe header is present.
func IsNewsletter(headers []model.Header) bool {
	return GetHeader(headers, "List-Unsubscribe") != ""
}

// IsJobEmail reports whether the message looks job/career related, by
// substring match against subject+sender.
func IsJobEmail(headers []model.Header) bool {
	combined := strings.ToLower(GetHeader(headers, "Subject")) + " " + strings.ToLower(GetHeader(headers, "From"))
	for _, k := range jobKeywords {
		if strings.Contains(combined, k) {
			return true
		}
	}
	for _, s := range jobSenders {
		if strings.Contains(combined, s) {
			return true
		}
	}
	return false
}

// IsPersonal reports whether the message looks like it was written directly
// by a person: no bulk/list headers, no bulk Precedence, and a sender that
// doesn't match the usual automated-mailbox patterns.
func IsPersonal(headers []model.Header) bool {
	if GetHeader(headers, "List-Unsubscribe") != "" {
		return false
	}
	if GetHeader(headers, "List-Id") != "" {
		return false
	}
	switch strings.ToLower(GetHeader(headers, "Precedence")) {
	case "bulk", "list", "junk":
		return false
	}
	sender := strings.ToLower(GetHeader(headers, "From"))
	for _, p := range automatedSenderPatterns {
		if strings.Contains(sender, p) {
			return false
		}
	}
	return true
}

// Categorize evaluates CategoryRules in order against subject+sender and
// returns the first matching label, or "" when nothing matches.
func Categorize(headers []model.Header) string {
	combined := strings.ToLower(GetHeader(headers, "Subject")) + " " + strings.ToLower(GetHeader(headers, "From"))
	for _, rule := range CategoryRules {
		for _, k := range rule.Keywords {
			if strings.Contains(combined, k) {
				return rule.Label
			}
		}
	}
	return ""
}

// AgeDays returns whole days elapsed since the message's Date header.
// Absent or unparsable dates yield 0, which downstream treats as "not old".
func AgeDays(headers []model.Header) int {
	return ageDaysAt(headers, time.Now())
}

func ageDaysAt(headers []model.Header, now time.Time) int {
	t, ok := ParseDate(GetHeader(headers, "Date"))
	if !ok {
		return 0
	}
	days := int(now.UTC().Sub(t.UTC()).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// dateLayouts covers the Date formats seen in the wild beyond strict
// RFC 5322, mirroring what Gmail itself emits.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// ParseDate parses an RFC 5322 Date header value, trying a few common
// non-conforming layouts before giving up.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

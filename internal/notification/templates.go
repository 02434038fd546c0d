package notification

import (
	"bytes"
	"fmt"
	"html/template"

	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"

	"github.com/bakurah/investors-portal-api/internal/models"
)

// TemplateContext carries the values substituted into an email template.
type TemplateContext struct {
	FullName      string
	RequestNumber string
	RequestType   models.RequestType
	Note          string
	PortalURL     string
}

// Rendered is the output of one template in one language.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type templateText struct {
	subject string
	heading string
	body    string
	action  string
}

// Arabic copy first per the portal's primary audience. The %s placeholder in
// subject and body is the request number.
var arabicCopy = map[models.NotificationTemplateID]templateText{
	models.TemplateRequestSubmitted: {
		subject: "تم استلام طلبك %s",
		heading: "تم استلام طلبك",
		body:    "تم استلام طلبك رقم %s وهو الآن قيد المراجعة الأولية. سنوافيك بأي مستجدات.",
		action:  "عرض الطلب",
	},
	models.TemplateRequestPendingInfo: {
		subject: "طلبك %s بحاجة إلى معلومات إضافية",
		heading: "معلومات إضافية مطلوبة",
		body:    "يحتاج فريق المراجعة إلى معلومات إضافية بخصوص طلبك رقم %s. يرجى الدخول إلى البوابة وإكمال البيانات المطلوبة.",
		action:  "إكمال البيانات",
	},
	models.TemplateRequestApproved: {
		subject: "تمت الموافقة على طلبك %s",
		heading: "تمت الموافقة على الطلب",
		body:    "يسرنا إبلاغك بالموافقة على طلبك رقم %s. سيتم التواصل معك لاستكمال إجراءات التسوية.",
		action:  "عرض التفاصيل",
	},
	models.TemplateRequestRejected: {
		subject: "تم رفض طلبك %s",
		heading: "تم رفض الطلب",
		body:    "نأسف لإبلاغك بأنه تم رفض طلبك رقم %s. يمكنك الاطلاع على تفاصيل القرار في البوابة.",
		action:  "عرض التفاصيل",
	},
	models.TemplateRequestSettling: {
		subject: "طلبك %s قيد التسوية",
		heading: "الطلب قيد التسوية",
		body:    "بدأت إجراءات التسوية لطلبك رقم %s. سنعلمك فور اكتمالها.",
		action:  "متابعة الحالة",
	},
	models.TemplateRequestCompleted: {
		subject: "اكتمل طلبك %s",
		heading: "اكتمل الطلب",
		body:    "اكتملت جميع إجراءات طلبك رقم %s بنجاح. شكراً لاستثمارك معنا.",
		action:  "عرض السجل",
	},
	models.TemplateRequestAdminAlert: {
		subject: "طلب جديد %s بانتظار الفرز",
		heading: "طلب جديد",
		body:    "تم تقديم الطلب رقم %s وهو بانتظار الفرز الأولي.",
		action:  "فتح قائمة المراجعة",
	},
}

var englishCopy = map[models.NotificationTemplateID]templateText{
	models.TemplateRequestSubmitted: {
		subject: "We received your request %s",
		heading: "Request received",
		body:    "Your request %s has been received and is now under initial review. We will keep you posted.",
		action:  "View request",
	},
	models.TemplateRequestPendingInfo: {
		subject: "Your request %s needs more information",
		heading: "More information needed",
		body:    "Our review team needs additional information about your request %s. Please sign in to the portal and complete the missing details.",
		action:  "Complete details",
	},
	models.TemplateRequestApproved: {
		subject: "Your request %s was approved",
		heading: "Request approved",
		body:    "We are pleased to inform you that your request %s has been approved. Our team will contact you to complete settlement.",
		action:  "View details",
	},
	models.TemplateRequestRejected: {
		subject: "Your request %s was rejected",
		heading: "Request rejected",
		body:    "We regret to inform you that your request %s has been rejected. You can review the decision details in the portal.",
		action:  "View details",
	},
	models.TemplateRequestSettling: {
		subject: "Your request %s is settling",
		heading: "Request settling",
		body:    "Settlement of your request %s has started. We will notify you as soon as it completes.",
		action:  "Track status",
	},
	models.TemplateRequestCompleted: {
		subject: "Your request %s is complete",
		heading: "Request completed",
		body:    "All steps for your request %s have completed successfully. Thank you for investing with us.",
		action:  "View history",
	},
	models.TemplateRequestAdminAlert: {
		subject: "New request %s awaiting screening",
		heading: "New request submitted",
		body:    "Request %s was submitted and is awaiting initial screening.",
		action:  "Open review queue",
	},
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}" dir="{{.Dir}}">
<head><meta charset="utf-8"></head>
<body style="font-family: Tahoma, Arial, sans-serif; background-color: #f5f6f8; margin: 0; padding: 24px;">
<div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
<h2 style="color: #1a2b4b; margin-top: 0;">{{.Heading}}</h2>
<p style="color: #333333; line-height: 1.7;">{{.Greeting}}</p>
<p style="color: #333333; line-height: 1.7;">{{.Body}}</p>
{{if .Note}}<blockquote style="border-inline-start: 3px solid #1a2b4b; margin: 16px 0; padding: 8px 16px; color: #555555;">{{.Note}}</blockquote>{{end}}
{{if .PortalURL}}<p style="margin: 24px 0;"><a href="{{.PortalURL}}" style="background: #1a2b4b; color: #ffffff; padding: 12px 28px; border-radius: 6px; text-decoration: none;">{{.Action}}</a></p>{{end}}
<p style="color: #999999; font-size: 12px;">{{.Footer}}</p>
</div>
</body>
</html>`))

type htmlData struct {
	Lang      string
	Dir       string
	Heading   string
	Greeting  string
	Body      string
	Note      string
	PortalURL string
	Action    string
	Footer    string
}

// Render produces the subject, HTML body and plaintext body for a template in
// the given language. Unknown templates and languages are rejected rather
// than silently falling back, so a bad outbox row fails its job visibly.
// The plaintext body always contains the request number.
func Render(id models.NotificationTemplateID, lang models.Language, tc TemplateContext) (Rendered, error) {
	var copySet map[models.NotificationTemplateID]templateText
	var greeting, footer, dir string
	switch lang {
	case models.LangArabic:
		copySet = arabicCopy
		greeting = fmt.Sprintf("عزيزي المستثمر %s،", tc.FullName)
		footer = "بوابة المستثمرين - باكورة"
		dir = "rtl"
	case models.LangEnglish:
		copySet = englishCopy
		greeting = fmt.Sprintf("Dear %s,", tc.FullName)
		footer = "Bakurah Investors Portal"
		dir = "ltr"
	default:
		return Rendered{}, appErrors.Clone(appErrors.ErrUnknownTemplate, fmt.Sprintf("unsupported language %q", lang))
	}

	text, ok := copySet[id]
	if !ok {
		return Rendered{}, appErrors.Clone(appErrors.ErrUnknownTemplate, fmt.Sprintf("unknown template %q", id))
	}

	subject := fmt.Sprintf(text.subject, tc.RequestNumber)
	body := fmt.Sprintf(text.body, tc.RequestNumber)

	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, htmlData{
		Lang:      string(lang),
		Dir:       dir,
		Heading:   text.heading,
		Greeting:  greeting,
		Body:      body,
		Note:      tc.Note,
		PortalURL: tc.PortalURL,
		Action:    text.action,
		Footer:    footer,
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("render email html: %w", err)
	}

	plain := greeting + "\n\n" + body
	if tc.Note != "" {
		plain += "\n\n" + tc.Note
	}
	if tc.PortalURL != "" {
		plain += "\n\n" + tc.PortalURL
	}
	plain += "\n\n" + footer

	return Rendered{Subject: subject, HTML: buf.String(), Text: plain}, nil
}

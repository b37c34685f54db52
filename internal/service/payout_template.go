package service

import (
	"sort"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/models"
)

// TemplateTag 邮件模板标签
type TemplateTag struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

// PayoutReceiptTemplateTags 付款回执可用标签
var PayoutReceiptTemplateTags = []TemplateTag{
	{Tag: "commissions", Description: "A list of purchased items with associated commission amounts and rates"},
	{Tag: "amount", Description: "The total earnings for the purchased items"},
	{Tag: "date", Description: "The sent date of the payout receipt"},
	{Tag: "user_id", Description: "The user id of the user"},
	{Tag: "name", Description: "The first name of the user"},
	{Tag: "fullname", Description: "The full name of the user"},
	{Tag: "username", Description: "The user name of the user"},
	{Tag: "address", Description: "The address of the user"},
	{Tag: "subtotal", Description: "The subtotal of the items sold"},
	{Tag: "price", Description: "The total value of the items sold"},
	{Tag: "tax", Description: "The amount of tax calculated for the purchased items"},
	{Tag: "store_commission", Description: "The total store commission accured for this date range"},
	{Tag: "sitename", Description: "Your site name"},
	{Tag: "start_date", Description: "The date range start date"},
	{Tag: "end_date", Description: "The date range end date"},
	{Tag: "payout_email", Description: "The user PayPal email address"},
}

// PayoutReportTemplateTags 管理员付款汇总可用标签
var PayoutReportTemplateTags = []TemplateTag{
	{Tag: "recipients", Description: "A list of commission recipient names with associated amounts"},
	{Tag: "amount", Description: "The total earnings accrued for the commission recipients"},
	{Tag: "date", Description: "The sent date of the payout report"},
	{Tag: "subtotal", Description: "The subtotal of the items sold"},
	{Tag: "price", Description: "The total value of the items sold"},
	{Tag: "tax", Description: "The amount of tax calculated for the purchased items"},
	{Tag: "store_commission", Description: "The total store commission accured for this purchase"},
	{Tag: "sitename", Description: "Your site name"},
	{Tag: "start_date", Description: "The date range start date"},
	{Tag: "end_date", Description: "The date range end date"},
}

// GroupedSaleAlertTemplateTags 合并销售提醒可用标签
var GroupedSaleAlertTemplateTags = []TemplateTag{
	{Tag: "commissions", Description: "A list of purchased items with associated commission amounts and rates"},
	{Tag: "amount", Description: "The total value of the purchased items"},
	{Tag: "date", Description: "The date of the purchase"},
	{Tag: "name", Description: "The first name of the user"},
	{Tag: "fullname", Description: "The full name of the user"},
	{Tag: "user_id", Description: "The user id the user"},
	{Tag: "username", Description: "The user name of the user"},
	{Tag: "address", Description: "The users address"},
	{Tag: "price", Description: "The total price of the item solds"},
	{Tag: "tax", Description: "The amount of tax calculated for the purchased items"},
	{Tag: "payment_id", Description: "The unique ID number for this purchase"},
	{Tag: "store_commission", Description: "The total store commission accured for this purchase"},
	{Tag: "sitename", Description: "Your site name"},
	{Tag: "buyer_name", Description: "The buyer's first name"},
	{Tag: "buyer_fullname", Description: "The buyer's full name, first and last"},
	{Tag: "buyer_username", Description: "The buyer's user name on the site, if they registered an account"},
	{Tag: "buyer_user_email", Description: "The buyer's email address"},
	{Tag: "buyer_address", Description: "The buyer's billing address"},
	{Tag: "receipt_id", Description: "The unique ID number for the buyer purchase receipt"},
	{Tag: "payment_method", Description: "The method of payment used for this purchase"},
	{Tag: "ip_address", Description: "The buyer's IP Address"},
}

// RenderTemplate 将模板中的 {tag} 替换为对应值，未知标签原样保留
// 替换为单次扫描，替换结果不会被再次解析
func RenderTemplate(template string, tags map[string]string) string {
	if template == "" || len(tags) == 0 {
		return template
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", tags[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// BlankTagValues 为词表中所有标签生成空值
func BlankTagValues(vocabulary []TemplateTag) map[string]string {
	values := make(map[string]string, len(vocabulary))
	for _, tag := range vocabulary {
		values[tag.Tag] = ""
	}
	return values
}

// DisplayTemplateTags 生成 "{tag} - 描述" 帮助文本
func DisplayTemplateTags(vocabulary []TemplateTag) string {
	lines := make([]string, 0, len(vocabulary))
	for _, tag := range vocabulary {
		lines = append(lines, "{"+tag.Tag+"} - "+tag.Description)
	}
	return strings.Join(lines, "\n")
}

// UserDisplayName 名优先，否则昵称
func UserDisplayName(user *models.User) string {
	if user == nil {
		return ""
	}
	if name := strings.TrimSpace(user.FirstName); name != "" {
		return name
	}
	return strings.TrimSpace(user.DisplayName)
}

// UserFullName 名与姓拼接，缺名时回退为显示名
func UserFullName(user *models.User) string {
	if user == nil {
		return ""
	}
	first := strings.TrimSpace(user.FirstName)
	if first == "" {
		return strings.TrimSpace(user.DisplayName)
	}
	if last := strings.TrimSpace(user.LastName); last != "" {
		return first + " " + last
	}
	return first
}

// FormatAddress 多行地址，第二行为空时省略
func FormatAddress(line1, line2, city, zip, state, country string) string {
	if strings.TrimSpace(line1+line2+city+zip+state+country) == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(line1)
	b.WriteString("\n")
	if strings.TrimSpace(line2) != "" {
		b.WriteString(line2)
		b.WriteString("\n")
	}
	b.WriteString(city)
	b.WriteString("\n")
	b.WriteString(zip)
	b.WriteString("\n")
	b.WriteString(state)
	b.WriteString("\n")
	b.WriteString(country)
	return b.String()
}

// FormatUserAddress 用户账单地址
func FormatUserAddress(address *models.UserAddress) string {
	if address == nil {
		return ""
	}
	return FormatAddress(address.Line1, address.Line2, address.City, address.Zip, address.State, address.Country)
}

// FormatPaymentAddress 支付账单地址
func FormatPaymentAddress(address models.PaymentAddress) string {
	return FormatAddress(address.Line1, address.Line2, address.City, address.Zip, address.State, address.Country)
}

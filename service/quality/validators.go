/*
 * @module service/quality/validators
 * @description 数据格式校验器集合，包括邮箱格式、罗马尼亚CUI财税码、状态一致性和公告相似度判定
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_req.md
 * @stateFlow 无状态纯函数校验
 * @rules CUI校验需剥离RO国别前缀；相似度判定使用去音调小写分词的Jaccard系数
 * @dependencies golang.org/x/text/runes, golang.org/x/text/transform, golang.org/x/text/unicode/norm
 * @refs service/quality/quality_monitor.go
 */

package quality

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"procurement-monitor/service/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// isValidEmail 校验邮箱格式
func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// isValidCUI 校验罗马尼亚CUI财税识别码格式
// 剥离RO国别前缀后必须为2到10位纯数字
func isValidCUI(cui string) bool {
	cleaned := strings.TrimSpace(strings.ReplaceAll(cui, "RO", ""))
	if len(cleaned) < 2 || len(cleaned) > 10 {
		return false
	}

	for _, c := range cleaned {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isStatusConsistent 校验公告状态与截止日期的一致性
// active 的公告截止日期不应在过去；closed 的公告截止日期不应在未来；其余状态视为一致
func isStatusConsistent(tender *models.Tender, now time.Time) bool {
	if tender.Status == "" {
		return false
	}

	switch tender.Status {
	case "active":
		if tender.SubmissionDeadline != nil && tender.SubmissionDeadline.Before(now) {
			return false
		}
	case "closed":
		if tender.SubmissionDeadline != nil && tender.SubmissionDeadline.After(now) {
			return false
		}
	}

	return true
}

// diacriticFolder 去除组合音调符号，罗马尼亚语标题中 ă/â/î/ș/ț 统一折叠为基础字母
var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// titleWords 标题归一化分词：去音调、转小写、按空白切分
func titleWords(title string) map[string]struct{} {
	folded, _, err := transform.String(diacriticFolder, title)
	if err != nil {
		folded = title
	}

	words := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(folded)) {
		words[word] = struct{}{}
	}
	return words
}

// areTendersSimilar 判定两条公告是否疑似重复
// 标题词集Jaccard相似度超过0.7且属于同一采购机构时判为相似
func areTendersSimilar(t1, t2 *models.Tender) bool {
	if t1.Title == "" || t2.Title == "" {
		return false
	}

	words1 := titleWords(t1.Title)
	words2 := titleWords(t2.Title)
	if len(words1) == 0 || len(words2) == 0 {
		return false
	}

	intersection := 0
	for word := range words1 {
		if _, exists := words2[word]; exists {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	similarity := float64(intersection) / float64(union)
	if similarity <= 0.7 {
		return false
	}

	return t1.ContractingAuthorityID != nil && t2.ContractingAuthorityID != nil &&
		*t1.ContractingAuthorityID == *t2.ContractingAuthorityID
}

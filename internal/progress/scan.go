package progress

import (
	"os"
	"sort"
	"strings"

	"github.com/Quaternijkon/HomDGCat/internal/manifest"
	"github.com/Quaternijkon/HomDGCat/internal/mirror"
)

// topCategories 限制缺失分类榜单的长度。
const topCategories = 15

// CategoryCount 是某一缺失分类下的条目数。
type CategoryCount struct {
	Category string
	Count    int
}

// ScanReport 描述镜像目录相对清单的完整度。
type ScanReport struct {
	Total             int
	Existing          int
	Missing           []manifest.Entry
	ExistingBytes     int64
	MissingCategories []CategoryCount
}

// Percent 返回已落盘条目的百分比。
func (r ScanReport) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Existing) / float64(r.Total) * 100
}

// Scan 盘点清单条目在镜像目录中的落盘情况。
// 非空文件计入已存在；缺失、空文件与越界条目都计入缺失。
func Scan(guard *mirror.Guard, entries []manifest.Entry) ScanReport {
	report := ScanReport{Total: len(entries)}
	counts := make(map[string]int)
	var order []string

	for _, entry := range entries {
		if target, err := guard.Resolve(entry.String()); err == nil {
			if info, err := os.Stat(target); err == nil && !info.IsDir() && info.Size() > 0 {
				report.Existing++
				report.ExistingBytes += info.Size()
				continue
			}
		}
		report.Missing = append(report.Missing, entry)
		cat := categoryOf(entry.String())
		if _, seen := counts[cat]; !seen {
			order = append(order, cat)
		}
		counts[cat]++
	}

	// 计数降序，同数保持首次出现顺序
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topCategories {
		order = order[:topCategories]
	}
	for _, cat := range order {
		report.MissingCategories = append(report.MissingCategories, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return report
}

// categoryOf 取路径前两段作为分类，不足三段时只取第一段。
func categoryOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		return strings.Join(parts[:2], "/")
	}
	return parts[0]
}

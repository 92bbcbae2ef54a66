package epg

import (
	"regexp"
	"strconv"
	"time"
)

// xmltvTimeRegex XMLTV时间格式，例如：20250117063000 +0000
var xmltvTimeRegex = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})\s*([+-])(\d{2})(\d{2})$`)

// ParseXMLTVTime 将XMLTV格式的时间字符串转换为UTC时间。
// 格式不匹配或日期非法时返回false，不会返回错误。
func ParseXMLTVTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	matches := xmltvTimeRegex.FindStringSubmatch(s)
	if len(matches) != 10 {
		return time.Time{}, false
	}

	// 正则已保证均为数字
	fields := make([]int, 0, 8)
	for _, i := range []int{1, 2, 3, 4, 5, 6, 8, 9} {
		n, _ := strconv.Atoi(matches[i])
		fields = append(fields, n)
	}
	year, month, day, hour, minute, second := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	offHour, offMinute := fields[6], fields[7]

	if offHour > 23 || offMinute > 59 {
		return time.Time{}, false
	}
	offset := offHour*3600 + offMinute*60
	if matches[7] == "-" {
		offset = -offset
	}

	zone := time.FixedZone("", offset)
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, zone)

	// time.Date会自动进位，例如2月30日变为3月2日，这里需要校验
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}

	return t.UTC(), true
}

package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// tsvWordLevel is the Tesseract TSV level of a single word.
const tsvWordLevel = 5

// ParseTSV reads Tesseract TSV output (level, page_num, block_num, par_num,
// line_num, word_num, left, top, width, height, conf, text). Words become
// the word bag; the text keeps Tesseract's line breaks.
func ParseTSV(data []byte) (*Result, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	res := &Result{}
	var lines []string
	var cur []string
	lastKey := ""
	row := 0
	for sc.Scan() {
		row++
		cols := strings.Split(sc.Text(), "\t")
		if row == 1 && len(cols) > 0 && cols[0] == "level" {
			continue
		}
		if len(cols) < 12 {
			continue
		}
		nums := make([]float64, 11)
		for i := range nums {
			v, err := strconv.ParseFloat(strings.TrimSpace(cols[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("tsv row %d column %d: %w", row, i+1, err)
			}
			nums[i] = v
		}
		level := int(nums[0])
		left, top, width, height := nums[6], nums[7], nums[8], nums[9]
		if level == 1 {
			res.Width, res.Height = int(width), int(height)
		}
		text := strings.TrimSpace(cols[11])
		if level != tsvWordLevel || text == "" {
			continue
		}
		key := strings.Join(cols[1:5], ".")
		if key != lastKey && len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = nil
		}
		lastKey = key
		cur = append(cur, text)
		res.Words = append(res.Words, layout.Word{
			Text: text, X1: left, Y1: top, X2: left + width, Y2: top + height,
			Confidence: nums[10],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	res.Text = strings.Join(lines, "\n")
	return res, nil
}

package report

import (
	"io"
	"text/tabwriter"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PreviewRows 文本报表中展示的过滤结果行数
const PreviewRows = 10

// Text 输出纯文本报表，数字按 lang 分组(如 en → 1,786，de → 1.786)
// lang 无法解析时按英文输出
func Text(w io.Writer, page *dashboard.Page, lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintf(tw, "dataset\t%s\n", page.Dataset)
	p.Fprintf(tw, "range\t%s\n", page.Range)
	p.Fprintf(tw, "rows\t%d\n", page.Rows)
	for _, warning := range page.Warnings {
		p.Fprintf(tw, "warning\t%s\n", warning)
	}

	if page.Dataset == dashboard.DatasetHour {
		p.Fprintf(tw, "\nhour\trecords\n")
		for _, h := range page.Hourly {
			p.Fprintf(tw, "%02d\t%d\n", h.Hour, h.Records)
		}
		p.Fprintf(tw, "\nday_type\trecords\n")
		for _, d := range page.DayTypes {
			p.Fprintf(tw, "%s\t%d\n", d.DayType, d.Records)
		}
	} else {
		if grid := page.SeasonWeather; grid != nil {
			p.Fprintf(tw, "\nseason")
			for _, weather := range grid.Weathers {
				p.Fprintf(tw, "\t%s", weather)
			}
			p.Fprintf(tw, "\n")
			for i, season := range grid.Seasons {
				p.Fprintf(tw, "%s", season)
				for j := range grid.Weathers {
					p.Fprintf(tw, "\t%d", grid.Cells[i][j])
				}
				p.Fprintf(tw, "\n")
			}
		}

		p.Fprintf(tw, "\npartition\tcasual\tregistered\ttotal\n")
		for _, u := range page.UserTypes {
			p.Fprintf(tw, "%s\t%d\t%d\t%d\n", u.Partition, u.Casual, u.Registered, u.Total())
		}

		writeRFMText(p, tw, rental.ColCasual, page.RFM)
		writeRFMText(p, tw, "day_type", page.RFMByDayType)
	}

	writePreview(p, tw, page.Filtered)

	return tw.Flush()
}

// writePreview 输出过滤结果的前 PreviewRows 行，日表不输出小时列
func writePreview(p *message.Printer, w io.Writer, t *rental.Table) {
	if t.Len() == 0 {
		return
	}
	n := t.Len()
	if n > PreviewRows {
		n = PreviewRows
	}
	hourly := t.Granularity() == rental.Hourly

	if hourly {
		p.Fprintf(w, "\ndate\thour\tseason\tweather\tcasual\tregistered\ttotal\n")
	} else {
		p.Fprintf(w, "\ndate\tseason\tweather\tcasual\tregistered\ttotal\n")
	}
	for i := 0; i < n; i++ {
		r := t.At(i)
		season, _ := r.Season.Label()
		weather, _ := r.Weather.Label()
		p.Fprintf(w, "%s\t", r.DateKey())
		if hourly {
			p.Fprintf(w, "%d\t", r.Hour)
		}
		p.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", season, weather, r.Casual, r.Registered, r.Total)
	}
}

func writeRFMText(p *message.Printer, w io.Writer, key string, rows []processor.RFMRow) {
	p.Fprintf(w, "\n%s\trecency\tfrequency\tmonetary\n", key)
	for _, r := range rows {
		p.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Key, r.Recency, r.Frequency, r.Monetary)
	}
}

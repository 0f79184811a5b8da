package holiday

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ar"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/bg"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/cz"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/gr"
	"github.com/rickar/cal/v2/hr"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/lt"
	"github.com/rickar/cal/v2/lv"
	"github.com/rickar/cal/v2/mw"
	"github.com/rickar/cal/v2/nc"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/ro"
	"github.com/rickar/cal/v2/ru"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/si"
	"github.com/rickar/cal/v2/sk"
	"github.com/rickar/cal/v2/ua"
	"github.com/rickar/cal/v2/us"
	"github.com/rickar/cal/v2/za"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"bizday/internal/model"
)

var (
	weekendAlt = []cal.AltDay{
		{Day: time.Saturday, Offset: -1},
		{Day: time.Sunday, Offset: 1},
	}
	sundayAlt = []cal.AltDay{
		{Day: time.Sunday, Offset: 1},
	}

	lincolnsBirthday = &cal.Holiday{
		Name:     "Lincoln's Birthday",
		Month:    time.February,
		Day:      12,
		Observed: weekendAlt,
		Func:     cal.CalcDayOfMonth,
	}
	cesarChavezDay = &cal.Holiday{
		Name:     "Cesar Chavez Day",
		Month:    time.March,
		Day:      31,
		Observed: sundayAlt,
		Func:     cal.CalcDayOfMonth,
	}
	texasIndependenceDay = &cal.Holiday{
		Name:  "Texas Independence Day",
		Month: time.March,
		Day:   2,
		Func:  cal.CalcDayOfMonth,
	}
)

// subdivision carries the complete holiday list of a region, national days
// included.
type subdivision struct {
	name     string
	holidays []*cal.Holiday
}

type country struct {
	holidays     []*cal.Holiday
	subdivisions map[string]subdivision
}

// Builtin serves the national and regional calendars compiled into the
// binary.
type Builtin struct {
	countries map[string]country
}

func with(base []*cal.Holiday, extra ...*cal.Holiday) []*cal.Holiday {
	return append(append([]*cal.Holiday{}, base...), extra...)
}

func national(holidays []*cal.Holiday) country {
	return country{holidays: holidays}
}

// NewBuiltin returns the built-in source: every country table shipped with
// rickar/cal, the German, Swiss and Australian regional tables, and
// New York, California and Texas on top of the US federal list.
func NewBuiltin() *Builtin {
	usFederal := []*cal.Holiday{
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	}
	return &Builtin{countries: map[string]country{
		"US": {
			holidays: usFederal,
			subdivisions: map[string]subdivision{
				"NY": {name: "New York", holidays: with(usFederal, lincolnsBirthday)},
				"CA": {name: "California", holidays: with(usFederal, cesarChavezDay)},
				"TX": {name: "Texas", holidays: with(usFederal, texasIndependenceDay)},
			},
		},
		"AU": {
			// Days shared by every state and territory.
			holidays: []*cal.Holiday{
				au.NewYear, au.AustraliaDay, au.GoodFriday, au.EasterMonday,
				au.AnzacDay, au.ChristmasDay, au.BoxingDay,
			},
			subdivisions: map[string]subdivision{
				"ACT": {name: "Australian Capital Territory", holidays: au.HolidaysACT},
				"NSW": {name: "New South Wales", holidays: au.HolidaysNSW},
				"NT":  {name: "Northern Territory", holidays: au.HolidaysNT},
				"QLD": {name: "Queensland", holidays: au.HolidaysQLD},
				"SA":  {name: "South Australia", holidays: au.HolidaysSA},
				"TAS": {name: "Tasmania", holidays: au.HolidaysTAS},
				"VIC": {name: "Victoria", holidays: au.HolidaysVIC},
				"WA":  {name: "Western Australia", holidays: au.HolidaysWA},
			},
		},
		"DE": {
			holidays: de.Holidays,
			subdivisions: map[string]subdivision{
				"BW": {name: "Baden-Württemberg", holidays: de.HolidaysBW},
				"BY": {name: "Bayern", holidays: de.HolidaysBY},
				"BE": {name: "Berlin", holidays: de.HolidaysBE},
				"BB": {name: "Brandenburg", holidays: de.HolidaysBB},
				"HB": {name: "Bremen", holidays: de.HolidaysHB},
				"HH": {name: "Hamburg", holidays: de.HolidaysHH},
				"HE": {name: "Hessen", holidays: de.HolidaysHE},
				"MV": {name: "Mecklenburg-Vorpommern", holidays: de.HolidaysMV},
				"NI": {name: "Niedersachsen", holidays: de.HolidaysNI},
				"NW": {name: "Nordrhein-Westfalen", holidays: de.HolidaysNW},
				"RP": {name: "Rheinland-Pfalz", holidays: de.HolidaysRP},
				"SL": {name: "Saarland", holidays: de.HolidaysSL},
				"SN": {name: "Sachsen", holidays: de.HolidaysSN},
				"ST": {name: "Sachsen-Anhalt", holidays: de.HolidaysST},
				"SH": {name: "Schleswig-Holstein", holidays: de.HolidaysSH},
				"TH": {name: "Thüringen", holidays: de.HolidaysTH},
			},
		},
		"CH": {
			holidays: ch.Holidays,
			subdivisions: map[string]subdivision{
				"ZH": {name: "Zurich", holidays: ch.HolidaysZH},
				"BE": {name: "Bern", holidays: ch.HolidaysBE},
				"LU": {name: "Lucerne", holidays: ch.HolidaysLU},
				"UR": {name: "Uri", holidays: ch.HolidaysUR},
				"SZ": {name: "Schwyz", holidays: ch.HolidaysSZ},
				"OW": {name: "Obwalden", holidays: ch.HolidaysOW},
				"NW": {name: "Nidwalden", holidays: ch.HolidaysNW},
				"GL": {name: "Glarus", holidays: ch.HolidaysGL},
				"ZG": {name: "Zug", holidays: ch.HolidaysZG},
				"FR": {name: "Fribourg", holidays: ch.HolidaysFR},
				"SO": {name: "Solothurn", holidays: ch.HolidaysSO},
				"BS": {name: "Basel-Stadt", holidays: ch.HolidaysBS},
				"BL": {name: "Basel-Landschaft", holidays: ch.HolidaysBL},
				"SH": {name: "Schaffhausen", holidays: ch.HolidaysSH},
				"AR": {name: "Appenzell Ausserrhoden", holidays: ch.HolidaysAR},
				"AI": {name: "Appenzell Innerrhoden", holidays: ch.HolidaysAI},
				"SG": {name: "St. Gallen", holidays: ch.HolidaysSG},
				"GR": {name: "Grisons", holidays: ch.HolidaysGR},
				"AG": {name: "Aargau", holidays: ch.HolidaysAG},
				"TG": {name: "Thurgau", holidays: ch.HolidaysTG},
				"VD": {name: "Vaud", holidays: ch.HolidaysVD},
				"TI": {name: "Ticino", holidays: ch.HolidaysTI},
				"VS": {name: "Valais", holidays: ch.HolidaysVS},
				"NE": {name: "Neuchâtel", holidays: ch.HolidaysNE},
				"GE": {name: "Geneva", holidays: ch.HolidaysGE},
				"JU": {name: "Jura", holidays: ch.HolidaysJU},
			},
		},
		"AR": national(ar.Holidays),
		"AT": national(at.Holidays),
		"BE": national(be.Holidays),
		"BG": national(bg.Holidays),
		"BR": national(br.Holidays),
		"CA": national(ca.Holidays),
		"CZ": national(cz.Holidays),
		"DK": national(dk.Holidays),
		"ES": national(es.Holidays),
		"FR": national(fr.Holidays),
		"GB": national(gb.Holidays),
		"GR": national(gr.Holidays),
		"HR": national(hr.Holidays),
		"IE": national(ie.Holidays),
		"IT": national(it.Holidays),
		"JP": national(jp.Holidays),
		"LT": national(lt.Holidays),
		"LV": national(lv.Holidays),
		"MW": national(mw.Holidays),
		"NC": national(nc.Holidays),
		"NL": national(nl.Holidays),
		"NO": national(no.Holidays),
		"NZ": national(nz.Holidays),
		"PL": national(pl.Holidays),
		"RO": national(ro.Holidays),
		"RU": national(ru.Holidays),
		"SE": national(se.Holidays),
		"SI": national(si.Holidays),
		"SK": national(sk.Holidays),
		"UA": national(ua.Holidays),
		"ZA": national(za.Holidays),
	}}
}

// HolidaysFor returns actual and observed dates of every holiday of the
// region (plus the subdivision's additions) in the given years.
func (b *Builtin) HolidaysFor(ctx context.Context, region, subdivision string, years []int) (model.DateSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, ok := b.countries[strings.ToUpper(region)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, identifier(region, subdivision))
	}
	list := c.holidays
	if subdivision != "" {
		sub, ok := c.subdivisions[strings.ToUpper(subdivision)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, identifier(region, subdivision))
		}
		list = sub.holidays
	}

	out := model.DateSet{}
	for _, year := range years {
		for _, h := range list {
			actual, observed := h.Calc(year)
			if !actual.IsZero() {
				out.Add(model.DateOf(actual))
			}
			if !observed.IsZero() {
				out.Add(model.DateOf(observed))
			}
		}
	}
	return out, nil
}

// Regions lists the countries and subdivisions with English display names.
func (b *Builtin) Regions() []model.Region {
	out := make([]model.Region, 0, len(b.countries))
	for code, c := range b.countries {
		name := regionName(code)
		out = append(out, model.Region{ID: code, Name: name})

		codes := make([]string, 0, len(c.subdivisions))
		for sub := range c.subdivisions {
			codes = append(codes, sub)
		}
		sort.Strings(codes)
		for _, sub := range codes {
			out = append(out, model.Region{
				ID:   identifier(code, sub),
				Name: fmt.Sprintf("%s (%s)", name, c.subdivisions[sub].name),
			})
		}
	}
	return out
}

// regionName returns the English name of an ISO 3166 code, or the code
// itself when x/text does not know it.
func regionName(code string) string {
	r, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(r); name != "" {
		return name
	}
	return code
}

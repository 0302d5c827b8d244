package pos

import (
	"context"
	"fmt"
	"strings"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// Variant selects which emission flow a row goes through.
type Variant int

const (
	// NamedHolder issues one ticket bound to a specific attendee.
	NamedHolder Variant = iota
	// Anonymous issues a quantity of tickets with no attendee identity.
	Anonymous
)

func (v Variant) String() string {
	if v == Anonymous {
		return "innominada"
	}
	return "nominada"
}

// OutcomeKind classifies one emission attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means a ticket identifier was captured.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeDuplicate is the recoverable duplicated-document rejection.
	OutcomeDuplicate
	// OutcomeValidation means the row references an option the event does
	// not offer. Never retried.
	OutcomeValidation
	// OutcomeFailure is any unclassified failure.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeValidation:
		return "validation"
	default:
		return "failure"
	}
}

// Outcome is the tagged result of one emission attempt.
type Outcome struct {
	Kind     OutcomeKind
	TicketID string
	Reason   string
}

// Row is one spreadsheet entry to emit. Index is the sheet row number
// (header row is row 1, data starts at 2).
type Row struct {
	Index        int
	FirstName    string
	LastName     string
	Document     string
	DocumentType string
	Performance  string
	Sector       string
	PriceTier    string
	Quantity     string
	Email        string
	Status       string
	ResultCode   string
}

// Selectors for the vendor's rendered markup. Coupled to the vendor's DOM
// and expected to break when they ship a redesign.
const (
	xpListboxButtons  = "//button[contains(@id, 'headlessui-listbox-button')]"
	xpListboxOptions  = "//li[contains(@id, 'headlessui-listbox-option')]"
	xpComboboxInput   = "//input[contains(@id, 'headlessui-combobox-input')]"
	xpComboboxOptions = "//li[contains(@id, 'headlessui-combobox-option')]"

	xpContinue    = "//button[@type='submit' and contains(., 'Continuar') and contains(@class, 'self-end')]"
	xpContinueAlt = "//button[contains(@class, 'bg-primary-600') and contains(., 'Continuar')]"
	xpSkip        = "//button[@type='submit' and contains(., 'Omitir')]"
	xpSkipAlt     = "//button[contains(@class, 'bg-primary-600') and contains(., 'Omitir')]"
	xpSkipSmall   = "//button[contains(@class, 'text-xs') and contains(., 'Omitir')]"

	xpLoadAttendees = "//button[contains(., 'Cargar asistentes')]"
	xpSaveAttendees = "//button[@type='submit' and contains(., 'Guardar asistentes')]"

	xpDeliveryQuentro = "//button[contains(@class, 'group') and contains(., 'Quentro')]"
	xpDeliveryEmail   = "//button[contains(@class, 'group') and contains(., 'Enviar por email')]"

	xpReserve    = "//button[contains(., 'Reservar entradas')]"
	xpReserveAlt = "//button[contains(@class, 'bg-primary-600') and contains(@class, 'text-base')]"

	xpTenderOptions     = "//div[@role='radiogroup']//p[text()='Cortesía']"
	xpComplimentary     = "//div[@role='radiogroup']//p[text()='Cortesía']/ancestor::div[@role='radio']"
	xpPay               = "//button[@type='submit' and contains(., 'Pagar')]"
	xpPayAlt            = "//button[contains(@class, 'bg-primary-600') and (contains(., 'Confirmar') or contains(., 'Finalizar'))]"
	xpConfirmationTexts = "//p[contains(@class, 'text-gray-500') and contains(text(), '#')] | //span[contains(text(), '#')] | //div[contains(text(), '#')] | //*[contains(@class, 'text-sm') and contains(text(), '#')]"
	xpAnotherSale       = "//button[contains(., 'Realizar otra venta')]"
)

// Walker runs the ticket emission step sequence against a session that is
// already sitting on the event's sale page.
type Walker struct {
	session *Session
	event   Event
	it      *Interactor
	logger  Logger
}

// NewWalker builds a walker for one selected event.
func NewWalker(session *Session, event Event) *Walker {
	return &Walker{
		session: session,
		event:   event,
		it:      session.Interactor(),
		logger:  session.logger,
	}
}

// walkState carries per-row values between steps.
type walkState struct {
	price    float64
	ticketID string
	started  time.Time
}

type variantMask uint8

const (
	namedOnly variantMask = 1 << iota
	anonOnly
	bothVariants = namedOnly | anonOnly
)

func (m variantMask) applies(v Variant) bool {
	if v == Anonymous {
		return m&anonOnly != 0
	}
	return m&namedOnly != 0
}

type step struct {
	name     string
	variants variantMask
	run      func(w *Walker, row Row, st *walkState) *Outcome
}

// emissionSteps is the single step table shared by both variants. Only
// the quantity and attendee steps are variant-gated; a step returning a
// non-nil outcome terminates the row.
var emissionSteps = []step{
	{"seleccionar función", bothVariants, (*Walker).stepPerformance},
	{"seleccionar sector", bothVariants, (*Walker).stepSector},
	{"seleccionar tarifa", bothVariants, (*Walker).stepPriceTier},
	{"ingresar cantidad", anonOnly, (*Walker).stepQuantity},
	{"continuar", bothVariants, (*Walker).stepContinue},
	{"cargar asistentes", namedOnly, (*Walker).stepAttendees},
	{"omitir asistentes", anonOnly, (*Walker).stepSkipAttendees},
	{"omitir adicionales", bothVariants, (*Walker).stepDismissUpsell},
	{"canal de entrega", bothVariants, (*Walker).stepDelivery},
	{"email", bothVariants, (*Walker).stepEmail},
	{"reservar entradas", bothVariants, (*Walker).stepReserve},
	{"verificar DNI duplicado", bothVariants, (*Walker).stepDuplicateCheck},
	{"medio de pago", bothVariants, (*Walker).stepComplimentary},
	{"confirmar pago", bothVariants, (*Walker).stepPay},
	{"capturar número de ticket", bothVariants, (*Walker).stepCapture},
	{"realizar otra venta", bothVariants, (*Walker).stepReset},
}

// Emit walks one row through the emission sequence. It never returns an
// error: every failure mode is folded into the Outcome, and a panic
// anywhere in the sequence recovers the session to the sale page and
// yields a Failure.
func (w *Walker) Emit(ctx context.Context, row Row, variant Variant) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("✗ Emission error on row %d: %v", row.Index, r)
			w.recoverToSale()
			out = Outcome{Kind: OutcomeFailure, Reason: fmt.Sprintf("%v", r)}
		}
	}()

	w.logger.Printf("=== Processing row %d (%s): %s %s ===", row.Index, variant, row.FirstName, row.LastName)
	st := &walkState{price: ParsePrice(row.PriceTier), started: time.Now()}

	n := 0
	for _, s := range emissionSteps {
		if !s.variants.applies(variant) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: OutcomeFailure, Reason: "cancelled"}
		}
		n++
		w.logger.Printf("%d. %s", n, s.name)
		if result := s.run(w, row, st); result != nil {
			return *result
		}
	}

	w.logger.Printf("⏱️ Ticket %s emitted in %.1fs", st.ticketID, time.Since(st.started).Seconds())
	return Outcome{Kind: OutcomeSuccess, TicketID: st.ticketID}
}

// recoverToSale best-effort navigates back to the emission entry page so
// the next row starts from a known state. Failures are ignored.
func (w *Walker) recoverToSale() {
	if err := w.session.OpenSale(w.event, 5*time.Second); err != nil {
		w.logger.Printf("  ⚠ Could not return to sale page: %v", err)
	}
}

// clickNth opens the n-th (0-based) element of an already matched
// selector, using the mode-appropriate click.
func (w *Walker) clickNth(selector string, n int) error {
	return w.it.clickLocator(w.session.Page().Locator(selector).Nth(n))
}

// listOptions reads the visible texts of an option list, unfiltered so
// indices stay aligned with the rendered elements. Blank entries are
// dropped only when rendering messages (optionLabels).
func (w *Walker) listOptions(selector string) []string {
	texts, err := w.session.Page().Locator(selector).AllTextContents()
	if err != nil {
		return nil
	}
	return texts
}

// indexedOption addresses the 1-based i-th element of an XPath union.
func indexedOption(selector string, i int) string {
	return fmt.Sprintf("(%s)[%d]", selector, i)
}

func (w *Walker) stepPerformance(row Row, st *walkState) *Outcome {
	want := strings.TrimSpace(row.Performance)

	buttons := w.session.Page().Locator(xpListboxButtons)
	count, err := buttons.Count()
	if err != nil || count == 0 {
		w.logger.Printf("  ⚠ Performance selector not found, continuing...")
		return nil
	}
	if err := w.clickNth(xpListboxButtons, 0); err != nil {
		w.logger.Printf("  ⚠ Could not open performance list: %v", err)
		return nil
	}
	w.session.Page().WaitForTimeout(300)

	options := w.listOptions(xpListboxOptions)
	if want == "" {
		w.it.Click(indexedOption(xpListboxOptions, 1), "primera función", 5*time.Second)
		return nil
	}
	idx := matchExact(options, want)
	if idx < 0 {
		return &Outcome{
			Kind:   OutcomeValidation,
			Reason: fmt.Sprintf("Función '%s' inexistente. Opciones válidas: %s", want, optionLabels(options)),
		}
	}
	if !w.it.Click(indexedOption(xpListboxOptions, idx+1), "función "+want, 5*time.Second).Ok() {
		return &Outcome{Kind: OutcomeFailure, Reason: "no se pudo seleccionar la función"}
	}
	w.logger.Printf("  ✓ Función seleccionada: %s", want)
	return nil
}

func (w *Walker) stepSector(row Row, st *walkState) *Outcome {
	want := strings.TrimSpace(row.Sector)
	if want == "" {
		return nil
	}

	buttons := w.session.Page().Locator(xpListboxButtons)
	count, err := buttons.Count()
	if err != nil || count < 2 {
		w.logger.Printf("  ⚠ Sector selector not found, continuing...")
		return nil
	}
	if err := w.clickNth(xpListboxButtons, 1); err != nil {
		w.logger.Printf("  ⚠ Could not open sector list: %v", err)
		return nil
	}
	w.session.Page().WaitForTimeout(300)

	options := w.listOptions(xpListboxOptions)
	idx := matchPartial(options, want)
	if idx < 0 {
		// Best-effort fallback kept from the original flow: an unmatched
		// sector silently takes the first option.
		w.logger.Printf("  ⚠ Sector '%s' sin coincidencias, usando el primero disponible", want)
		w.it.Click(indexedOption(xpListboxOptions, 1), "primer sector disponible", 3*time.Second)
		return nil
	}
	w.it.Click(indexedOption(xpListboxOptions, idx+1), "sector "+want, 3*time.Second)
	return nil
}

func (w *Walker) stepPriceTier(row Row, st *walkState) *Outcome {
	want := strings.TrimSpace(row.PriceTier)
	w.logger.Printf("  Tarifa solicitada: %s (valor %.2f)", want, st.price)

	input := w.session.Page().Locator(xpComboboxInput).First()
	if err := input.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(5_000),
	}); err != nil {
		w.logger.Printf("  ⚠ Tarifa combobox not found, continuing...")
		return nil
	}
	if err := w.it.clickLocator(input); err != nil {
		w.logger.Printf("  ⚠ Could not open tarifa combobox: %v", err)
		return nil
	}
	w.session.Page().WaitForTimeout(300)
	offered := w.listOptions(xpComboboxOptions)

	if err := input.Fill(want); err != nil {
		w.logger.Printf("  ⚠ Could not type tarifa filter: %v", err)
		return nil
	}
	w.session.Page().WaitForTimeout(300)

	first := w.session.Page().Locator(xpComboboxOptions).First()
	if err := first.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(2_000),
	}); err != nil {
		return &Outcome{
			Kind:   OutcomeValidation,
			Reason: fmt.Sprintf("Tarifa '%s' sin sugerencias. Opciones válidas: %s", want, optionLabels(offered)),
		}
	}
	if err := w.it.clickLocator(first); err != nil {
		return &Outcome{Kind: OutcomeFailure, Reason: "no se pudo seleccionar la tarifa"}
	}
	w.logger.Printf("  ✓ Tarifa seleccionada")
	return nil
}

func (w *Walker) stepQuantity(row Row, st *walkState) *Outcome {
	qty := strings.TrimSpace(row.Quantity)
	if qty == "" {
		qty = "1"
	}
	if w.it.Fill("#quantity", qty, "cantidad", 3*time.Second).Ok() {
		w.logger.Printf("  ✓ Cantidad ingresada: %s", qty)
		return nil
	}
	if w.it.Fill("//input[@type='number']", qty, "cantidad (fallback)", 3*time.Second).Ok() {
		w.logger.Printf("  ✓ Cantidad ingresada: %s", qty)
		return nil
	}
	w.logger.Printf("  ⚠ No se pudo ingresar cantidad, usando valor por defecto")
	return nil
}

func (w *Walker) stepContinue(row Row, st *walkState) *Outcome {
	if !w.it.Click(xpContinue, "botón Continuar", 5*time.Second).Ok() {
		w.it.Click(xpContinueAlt, "botón Continuar alternativo", 3*time.Second)
	}
	return nil
}

func (w *Walker) stepAttendees(row Row, st *walkState) *Outcome {
	if !w.it.Click(xpLoadAttendees, "botón cargar asistentes").Ok() {
		return nil
	}

	docType := strings.TrimSpace(row.DocumentType)
	if docType == "" {
		docType = "DNI"
	}

	// The third listbox on the attendee form is the document type. An
	// exact match is required: issuing an attendee document under the
	// wrong legal category must not happen.
	buttons := w.session.Page().Locator(xpListboxButtons)
	if count, err := buttons.Count(); err == nil && count >= 3 {
		if err := w.clickNth(xpListboxButtons, 2); err == nil {
			w.session.Page().WaitForTimeout(300)
			options := w.listOptions(xpListboxOptions)
			idx := matchExact(options, docType)
			if idx < 0 {
				return &Outcome{
					Kind:   OutcomeValidation,
					Reason: fmt.Sprintf("Tipo de documento '%s' inexistente. Opciones válidas: %s", docType, optionLabels(options)),
				}
			}
			w.it.Click(indexedOption(xpListboxOptions, idx+1), "tipo de documento "+docType, 3*time.Second)
			w.logger.Printf("  ✓ Tipo de documento seleccionado: %s", docType)
		}
	} else {
		w.logger.Printf("  ⚠ Selector de tipo de documento no encontrado, continuando...")
	}

	doc := SanitizeDocument(row.Document)
	if doc != row.Document {
		w.logger.Printf("  DNI limpiado: '%s' → '%s'", row.Document, doc)
	}
	w.it.Fill(`[id="holders.0.firstName"]`, row.FirstName, "nombre")
	w.it.Fill(`[id="holders.0.lastName"]`, row.LastName, "apellido")
	w.it.Fill(`[id="holders.0.documentNumber"]`, doc, "DNI")

	w.it.Click(xpSaveAttendees, "guardar asistentes")
	return nil
}

func (w *Walker) stepSkipAttendees(row Row, st *walkState) *Outcome {
	if !w.it.Click(xpSkip, "botón Omitir", 5*time.Second).Ok() {
		w.it.Click(xpSkipAlt, "botón Omitir alternativo", 3*time.Second)
	}
	return nil
}

func (w *Walker) stepDismissUpsell(row Row, st *walkState) *Outcome {
	// The upsell step does not always appear; absence is fine.
	w.it.Click(xpSkip, "omitir", 3*time.Second)
	return nil
}

func (w *Walker) stepDelivery(row Row, st *walkState) *Outcome {
	w.it.Click(xpDeliveryQuentro, "canal Quentro")
	w.it.Click(xpDeliveryEmail, "enviar por email")
	return nil
}

func (w *Walker) stepEmail(row Row, st *walkState) *Outcome {
	email := strings.TrimSpace(row.Email)
	if email == "" {
		return nil
	}
	w.logger.Printf("  Ingresando email: %s", email)
	w.it.Fill("#email", email, "email")
	if !w.it.Click(xpContinue, "continuar después del email", 5*time.Second).Ok() {
		w.it.Click(xpContinueAlt, "continuar alternativo", 3*time.Second)
	}
	w.it.Click(xpSkipSmall, "omitir pequeño", 3*time.Second)
	return nil
}

func (w *Walker) stepReserve(row Row, st *walkState) *Outcome {
	if !w.it.Click(xpReserve, "reservar entradas").Ok() {
		w.it.Click(xpReserveAlt, "botón principal", 3*time.Second)
	}
	return nil
}

func (w *Walker) stepDuplicateCheck(row Row, st *walkState) *Outcome {
	if w.checkDuplicate() {
		return &Outcome{Kind: OutcomeDuplicate, Reason: "documento duplicado"}
	}
	return nil
}

func (w *Walker) stepComplimentary(row Row, st *walkState) *Outcome {
	tenders := w.session.Page().Locator(xpTenderOptions).First()
	if err := tenders.WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(10_000)}); err != nil {
		w.logger.Printf("  ⚠ Opciones de pago tardaron en cargar")
	} else {
		w.session.Page().WaitForTimeout(500)
	}

	if st.price != 0 {
		return nil
	}
	if w.it.Click(xpComplimentary, "botón radio Cortesía", 5*time.Second).Ok() {
		w.logger.Printf("  ✓ Cortesía seleccionada")
	} else {
		w.logger.Printf("  ⚠ No se pudo seleccionar Cortesía, continuando...")
	}
	return nil
}

func (w *Walker) stepPay(row Row, st *walkState) *Outcome {
	if !w.it.Click(xpPay, "pagar").Ok() {
		w.it.Click(xpPayAlt, "confirmar/finalizar", 3*time.Second)
	}
	return nil
}

func (w *Walker) stepCapture(row Row, st *walkState) *Outcome {
	marker := w.session.Page().Locator(xpConfirmationTexts).First()
	if err := marker.WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(10_000)}); err != nil {
		w.logger.Printf("  ⚠ No se detectó número de ticket rápidamente")
	}

	id := CaptureTicketNumber(w.session.Page())
	if id == "" {
		w.logger.Printf("✗ No se pudo capturar el número de ticket")
		return &Outcome{Kind: OutcomeFailure, Reason: "ticket no capturado"}
	}
	st.ticketID = id
	w.logger.Printf("✓ Ticket generado: %s", id)
	return nil
}

func (w *Walker) stepReset(row Row, st *walkState) *Outcome {
	w.it.Click(xpAnotherSale, "realizar otra venta", 5*time.Second)
	return nil
}

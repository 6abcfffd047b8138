package prompt

import (
	"fmt"
	"strings"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
)

const (
	// contextLimit stays below the model's 32768-token window.
	contextLimit  = 30000
	safetyReserve = 500

	// Job-description-heavy tasks embed at most this much raw JD text.
	jdContextLimit = 2000
)

// Prompt is a composed system+user message pair ready for the model client.
type Prompt struct {
	System string
	User   string
}

// PersonalInfo is the structured input for authoring a CV from scratch.
type PersonalInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	Profession string `json:"profession"`
}

// Build composes the prompt pair for one analysis run. The CV body passes
// through the head+tail condenser before embedding; the whole user prompt is
// then fitted to the remaining token budget with the prefix truncator.
func Build(spec domain.AnalysisSpec, cvText, jobDescription, language string) Prompt {
	language = NormalizeLanguage(language)
	system := SystemPrompt(spec.TaskKey, language)

	var user string
	switch spec.Type {
	case domain.AnalysisOptimizeCv:
		user = optimizeCvPrompt(CondenseCvText(cvText), jobDescription)
	case domain.AnalysisAtsCheck:
		user = atsCheckPrompt(CondenseCvText(cvText), jobDescription)
	case domain.AnalysisGrammarCheck:
		user = grammarCheckPrompt(cvText)
	case domain.AnalysisRecruiterFeedback:
		user = recruiterFeedbackPrompt(CondenseCvText(cvText), jobDescription)
	case domain.AnalysisCoverLetter:
		user = coverLetterPrompt(cvText, jobDescription)
	case domain.AnalysisInterviewQuestions:
		user = interviewQuestionsPrompt(cvText, jobDescription)
	}

	return fitBudget(system, user, spec.MaxRespTokens, language)
}

// BuildNewCv composes the prompt pair for generating a CV from user-supplied
// facts rather than an uploaded document.
func BuildNewCv(info PersonalInfo, experience, education, skills, jobDescription, language string) Prompt {
	language = NormalizeLanguage(language)
	system := SystemPrompt("cv_optimization", language)
	user := newCvPrompt(info, experience, education, skills, jobDescription)
	return fitBudget(system, user, 3500, language)
}

// BuildJobSummary condenses an oversized job description before it is used
// as analysis context.
func BuildJobSummary(jobText string) Prompt {
	user := fmt.Sprintf(`ZADANIE: Wyciągnij i podsumuj kluczowe informacje z tego ogłoszenia o pracę w języku polskim.

Uwzględnij:
1. Stanowisko i nazwa firmy (jeśli podane)
2. Wymagane umiejętności i kwalifikacje
3. Obowiązki i zakres zadań
4. Preferowane doświadczenie
5. Inne ważne szczegóły (benefity, lokalizacja, itp.)
6. TOP 5 słów kluczowych krytycznych dla tego stanowiska

Tekst ogłoszenia:
%s

Stwórz zwięzłe ale kompletne podsumowanie tego ogłoszenia, skupiając się na informacjach istotnych dla optymalizacji CV.
Na końcu umieść sekcję "KLUCZOWE SŁOWA:" z 5 najważniejszymi terminami.`, Clip(jobText, 4000))

	return fitBudget("", user, 1500, DefaultLanguage)
}

// fitBudget runs the user prompt through the prefix truncator with the
// remaining context budget: contextLimit minus system prompt, minus the
// response reservation, minus a fixed safety reserve.
func fitBudget(system, user string, maxRespTokens int, language string) Prompt {
	available := contextLimit - EstimateTokens(system) - maxRespTokens - safetyReserve
	return Prompt{
		System: system,
		User:   TruncateToTokenLimit(user, available, language),
	}
}

func optimizeCvPrompt(cvText, jobDescription string) string {
	target := jobDescription
	if target == "" {
		target = "Ogólne CV profesjonalne"
	}

	return fmt.Sprintf(`ZADANIE: Przepisz to CV używając WYŁĄCZNIE faktów z oryginalnego tekstu. NIE DODAWAJ, NIE WYMYŚLAJ, NIE TWÓRZ nowych informacji.

%s

⚠️ KRYTYCZNE ZASADY - MUSZĄ BYĆ BEZWZGLĘDNIE PRZESTRZEGANE:
1. ❌ ABSOLUTNY ZAKAZ: NIE wolno dodawać żadnych nowych firm, stanowisk, dat, osiągnięć, umiejętności
2. ❌ ABSOLUTNY ZAKAZ: NIE wolno zmieniać dat zatrudnienia, nazw firm, tytułów stanowisk
3. ❌ ABSOLUTNY ZAKAZ: NIE wolno dodawać obowiązków które nie są w oryginalnym CV
4. ❌ ABSOLUTNY ZAKAZ: NIE wolno wymyślać projektów, klientów, rezultatów
5. ❌ ABSOLUTNY ZAKAZ: NIE wolno dodawać certyfikatów, kursów, szkoleń których nie ma
6. ✅ DOZWOLONE: Tylko lepsze sformułowanie istniejących opisów używając lepszych słów
7. ✅ DOZWOLONE: Reorganizacja kolejności sekcji dla lepszej prezentacji
8. ✅ DOZWOLONE: Użycie synonimów i lepszej terminologii branżowej
9. ✅ DOZWOLONE: Poprawa gramatyki i stylu bez zmiany treści

STANOWISKO DOCELOWE: %s

ORYGINALNE CV (UŻYWAJ TYLKO TYCH FAKTÓW):
%s

STRUKTURA ZOPTYMALIZOWANEGO CV:

[DANE OSOBOWE]
- Zachowaj dokładnie dane kontaktowe z oryginalnego CV

[PODSUMOWANIE ZAWODOWE]
- Stwórz zwięzłe podsumowanie NA PODSTAWIE doświadczenia z oryginalnego CV
- 2-3 zdania o kluczowych umiejętnościach FAKTYCZNIE wymienionych w CV

[DOŚWIADCZENIE ZAWODOWE]
- Zachowaj WSZYSTKIE firmy, stanowiska i daty DOKŁADNIE z oryginału
- Przepisz opisy obowiązków używając lepszych czasowników akcji
- Każde stanowisko: tylko obowiązki które SĄ w oryginalnym CV

[WYKSZTAŁCENIE]
- Przepisz DOKŁADNIE informacje z oryginalnego CV
- Zachowaj nazwy uczelni, kierunki studiów, daty bez zmian

[UMIEJĘTNOŚCI]
- Użyj TYLKO umiejętności wymienione w oryginalnym CV
- Pogrupuj je logicznie (Techniczne, Komunikacyjne, itp.)

[DODATKOWE SEKCJE]
- Przepisz TYLKO sekcje które są w oryginalnym CV

%s

PRZEPISZ CV zachowując WSZYSTKIE oryginalne fakty, ale lepiej je prezentując.

ZWRÓĆ TYLKO KOMPLETNY TEKST ZOPTYMALIZOWANEGO CV - nic więcej.
Nie dodawaj JSON, metadanych ani komentarzy.`,
		antiHallucinationClause, target, cvText, selfCheckClause)
}

func recruiterFeedbackPrompt(cvText, jobDescription string) string {
	context := ""
	if jobDescription != "" {
		context = "Opis stanowiska do kontekstu:\n" + jobDescription + "\n\n"
	}

	return fmt.Sprintf(`ZADANIE: Jesteś doświadczonym rekruterem. Przeanalizuj to CV i udziel szczegółowej, konstruktywnej opinii.

⚠️ KLUCZOWE: Oceniaj TYLKO to co faktycznie jest w CV. NIE ZAKŁADAJ, NIE DOMYŚLAJ się i NIE DODAWAJ informacji, których tam nie ma.

Uwzględnij w ocenie:
1. Ogólne wrażenie i pierwsza reakcja na podstawie faktycznej treści CV
2. Mocne strony i słabości wynikające z konkretnych informacji w CV
3. Ocena formatowania i struktury CV
4. Jakość treści i sposób prezentacji faktycznych doświadczeń
5. Kompatybilność z systemami ATS
6. Konkretne sugestie poprawek oparte na tym co jest w CV
7. Ocena ogólna w skali 1-10
8. Prawdopodobieństwo zaproszenia na rozmowę

%sCV do oceny:
%s

Odpowiedź w formacie JSON:
{
  "overall_impression": "Pierwsze wrażenie oparte na faktycznej treści CV",
  "rating": [1-10],
  "strengths": ["Mocna strona 1", "Mocna strona 2", "Mocna strona 3"],
  "weaknesses": ["Słabość 1 z sugestią poprawy", "Słabość 2 z sugestią poprawy", "Słabość 3 z sugestią poprawy"],
  "formatting_assessment": "Ocena layoutu, struktury i czytelności",
  "content_quality": "Ocena jakości treści rzeczywiście obecnej w CV",
  "ats_compatibility": "Czy CV przejdzie przez systemy automatycznej selekcji",
  "specific_improvements": ["Konkretna poprawa 1", "Konkretna poprawa 2", "Konkretna poprawa 3"],
  "interview_probability": "Prawdopodobieństwo zaproszenia oparte na faktach z CV",
  "recruiter_summary": "Podsumowanie z perspektywy rekrutera - tylko fakty z CV"
}

Bądź szczery, ale konstruktywny. Oceniaj tylko to co rzeczywiście jest w CV, nie dodawaj od siebie.`,
		context, cvText)
}

func coverLetterPrompt(cvText, jobDescription string) string {
	return fmt.Sprintf(`ZADANIE: Napisz spersonalizowany list motywacyjny WYŁĄCZNIE na podstawie faktów z CV.

⚠️ ABSOLUTNE WYMAGANIA:
- Używaj TYLKO informacji faktycznie obecnych w CV
- NIE WYMYŚLAJ doświadczeń, projektów, osiągnięć ani umiejętności
- Jeśli w CV brakuje jakichś informacji - nie uzupełniaj ich

List motywacyjny powinien:
- Być profesjonalnie sformatowany
- Podkreślać umiejętności i doświadczenia faktycznie wymienione w CV
- Łączyć prawdziwe doświadczenie kandydata z wymaganiami stanowiska
- Mieć około 300-400 słów
- Być napisany naturalnym, profesjonalnym językiem

Struktura listu:
1. Nagłówek z danymi kontaktowymi
2. Zwrot do adresata
3. Wprowadzenie - dlaczego aplikujesz
4. Główna treść - dopasowanie doświadczenia do wymagań
5. Zakończenie z wyrażeniem zainteresowania
6. Pozdrowienia

Opis stanowiska:
%s

CV kandydata:
%s

Napisz kompletny list motywacyjny. Użyj profesjonalnego, ale ciepłego tonu.`,
		jobDescription, cvText)
}

func atsCheckPrompt(cvText, jobDescription string) string {
	context := ""
	if jobDescription != "" {
		context = "Ogłoszenie o pracę dla odniesienia:\n" + Clip(jobDescription, jdContextLimit) + "\n\n"
	}

	return fmt.Sprintf(`ZADANIE: Przeprowadź dogłębną analizę CV pod kątem kompatybilności z systemami ATS (Applicant Tracking System) i wykryj potencjalne problemy.

Przeprowadź następujące analizy:

1. WYKRYWANIE PROBLEMÓW STRUKTURALNYCH:
   - Znajdź sekcje, które są w nieodpowiednich miejscach
   - Wskaż niespójności w układzie i formatowaniu
   - Zidentyfikuj zduplikowane informacje w różnych sekcjach

2. ANALIZA FORMATOWANIA ATS:
   - Wykryj problemy z formatowaniem, które mogą utrudnić odczyt przez systemy ATS
   - Sprawdź, czy nagłówki sekcji są odpowiednio wyróżnione
   - Oceń czytelność dla systemów automatycznych

3. ANALIZA SŁÓW KLUCZOWYCH:
   - Sprawdź gęstość słów kluczowych i trafność ich wykorzystania
   - Zidentyfikuj brakujące słowa kluczowe z branży/stanowiska

4. OCENA KOMPLETNOŚCI:
   - Zidentyfikuj brakujące sekcje lub informacje, które są często wymagane przez ATS

5. OCENA OGÓLNA:
   - Oceń ogólną skuteczność CV w systemach ATS w skali 1-10
   - Podaj główne powody obniżonej oceny

%sCV do analizy:
%s

Odpowiedz w tym samym języku co CV.
Dodaj główny nagłówek: "ANALIZA ATS CV"

Format odpowiedzi:

## ANALIZA ATS CV

1. OCENA OGÓLNA (skala 1-10): [ocena]

2. PROBLEMY KRYTYCZNE:
[Lista wykrytych krytycznych problemów]

3. PROBLEMY ZE STRUKTURĄ:
[Lista problemów strukturalnych]

4. PROBLEMY Z FORMATOWANIEM ATS:
[Lista problemów z formatowaniem]

5. ANALIZA SŁÓW KLUCZOWYCH:
[Wyniki analizy słów kluczowych]

6. BRAKUJĄCE INFORMACJE:
[Lista brakujących informacji]

7. REKOMENDACJE NAPRAWCZE:
[Konkretne sugestie, jak naprawić zidentyfikowane problemy]

8. PODSUMOWANIE:
[Krótkie podsumowanie i zachęta]`,
		context, cvText)
}

func interviewQuestionsPrompt(cvText, jobDescription string) string {
	context := ""
	if jobDescription != "" {
		context = "Uwzględnij poniższe ogłoszenie o pracę przy tworzeniu pytań:\n" + Clip(jobDescription, jdContextLimit) + "\n\n"
	}

	return fmt.Sprintf(`ZADANIE: Wygeneruj zestaw potencjalnych pytań rekrutacyjnych, które kandydat może otrzymać podczas rozmowy kwalifikacyjnej.

Pytania powinny być:
1. Specyficzne dla doświadczenia i umiejętności kandydata wymienionych w CV
2. Dopasowane do stanowiska (jeśli podano opis stanowiska)
3. Zróżnicowane - połączenie pytań technicznych, behawioralnych i sytuacyjnych
4. Realistyczne i często zadawane przez rekruterów

Uwzględnij po co najmniej 3 pytania z każdej kategorii:
- Pytania o doświadczenie zawodowe
- Pytania techniczne/o umiejętności
- Pytania behawioralne
- Pytania sytuacyjne
- Pytania o motywację i dopasowanie do firmy/stanowiska

%sCV:
%s

Odpowiedz w tym samym języku co CV.
Dodatkowo, do każdego pytania dodaj krótką wskazówkę, jak można by na nie odpowiedzieć w oparciu o informacje z CV.
Format odpowiedzi:
- Pytanie rekrutacyjne
  * Wskazówka jak odpowiedzieć: [wskazówka]`,
		context, cvText)
}

func grammarCheckPrompt(cvText string) string {
	return fmt.Sprintf(`Przeprowadź szczegółową korektę językową tego CV:

%s

Sprawdź:
1. **Ortografia i gramatyka** - błędy językowe
2. **Interpunkcja** - poprawność znaków przestankowych
3. **Styl i płynność** - poprawa sformułowań
4. **Konsekwencja** - jednolitość stylu w całym CV
5. **Profesjonalizm języka** - dopasowanie do standardów biznesowych
6. **Czytelność** - sugestie poprawy zrozumiałości

Dla każdego błędu podaj:
- Fragment z błędem
- Poprawną wersję
- Krótkie wyjaśnienie

Na końcu podaj ogólną ocenę jakości językowej (1-10) i główne rekomendacje.

Odpowiedź w formacie JSON:
{
  "grammar_score": [1-10],
  "style_score": [1-10],
  "professionalism_score": [1-10],
  "errors": [
    {"type": "gramatyka", "text": "błędny tekst", "correction": "poprawka", "line": "sekcja"},
    {"type": "styl", "text": "tekst do poprawy", "suggestion": "sugestia", "line": "sekcja"}
  ],
  "style_suggestions": ["sugestia 1", "sugestia 2", "sugestia 3"],
  "overall_quality": "ocena ogólna jakości językowej",
  "summary": "Podsumowanie analizy językowej"
}`, cvText)
}

func newCvPrompt(info PersonalInfo, experience, education, skills, jobDescription string) string {
	var input strings.Builder
	writeIf := func(label, value string) {
		if value != "" {
			input.WriteString(label + ": " + value + "\n")
		}
	}
	writeIf("Imię i nazwisko", info.Name)
	writeIf("Email", info.Email)
	writeIf("Telefon", info.Phone)
	writeIf("Lokalizacja", info.Location)
	writeIf("Zawód/Specjalizacja", info.Profession)
	if experience != "" {
		input.WriteString("\nDOŚWIADCZENIE ZAWODOWE PODANE PRZEZ UŻYTKOWNIKA:\n" + experience + "\n")
	}
	if education != "" {
		input.WriteString("\nWYKSZTAŁCENIE PODANE PRZEZ UŻYTKOWNIKA:\n" + education + "\n")
	}
	if skills != "" {
		input.WriteString("\nUMIEJĘTNOŚCI PODANE PRZEZ UŻYTKOWNIKA:\n" + skills + "\n")
	}
	if jobDescription != "" {
		input.WriteString("\nDOCELOWE STANOWISKO:\n" + jobDescription + "\n")
	}

	return fmt.Sprintf(`ZADANIE: Wygeneruj kompletną treść CV na podstawie informacji podanych przez użytkownika.

%s

💼 METODA PRACY:
1. Analizuj informacje podane przez użytkownika
2. Strukturyzuj je w profesjonalny sposób
3. Rozwiń opisy obowiązków dla podanych stanowisk
4. Użyj właściwej terminologii branżowej
5. Zachowaj wszystkie podane fakty bez zmian
6. Nie dodawaj informacji których nie ma w danych wejściowych

DANE WEJŚCIOWE OD UŻYTKOWNIKA:
%s

WYGENERUJ CV ZAWIERAJĄCE:

1. **DANE OSOBOWE** - użyj dokładnie podanych danych kontaktowych
2. **PROFIL ZAWODOWY** - zwięzły opis (2-3 zdania) NA PODSTAWIE podanych informacji
3. **DOŚWIADCZENIE ZAWODOWE** - TYLKO stanowiska i firmy podane przez użytkownika; możesz rozwinąć opisy obowiązków
4. **WYKSZTAŁCENIE** - TYLKO informacje o wykształceniu podane przez użytkownika
5. **UMIEJĘTNOŚCI** - TYLKO umiejętności podane przez użytkownika, pogrupowane logicznie
6. **DODATKOWE SEKCJE** - tylko jeśli użytkownik podał odpowiednie informacje

⚠️ ZASADY GENEROWANIA:
- Jeśli użytkownik podał minimalne informacje, stwórz podstawowe CV
- Jeśli nie podał doświadczenia, nie wymyślaj firm ani stanowisk
- Lepiej mieć krótkie ale prawdziwe CV niż długie z wymyślonymi danymi

%s

ZWRÓĆ TYLKO KOMPLETNY TEKST CV - nic więcej.
Nie dodawaj JSON, metadanych ani komentarzy.`,
		antiHallucinationClause, input.String(), selfCheckClause)
}

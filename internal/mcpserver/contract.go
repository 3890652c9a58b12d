package mcpserver

// OrderFormatContract describes the order XML wire format that producers
// and LLM consumers must follow when submitting print orders.
const OrderFormatContract = `# Proxyforge Order Format Contract

Every order document submitted to Proxyforge MUST be XML with this structure.

## Structure

` + "```" + `xml
<order>
  <quantity>18</quantity>        <!-- OPTIONAL - defaults to 0 -->
  <bracket>1</bracket>           <!-- OPTIONAL - defaults to 0 -->
  <stock>Standard</stock>        <!-- OPTIONAL - defaults to "Unknown" -->
  <foil>false</foil>             <!-- OPTIONAL - defaults to false -->
  <cardback>Blue</cardback>      <!-- OPTIONAL - defaults to "DefaultCardBack" -->
  <fronts>                       <!-- REQUIRED - absence aborts the import -->
    <card>
      <name>Island</name>                  <!-- OPTIONAL - defaults to "Unknown" -->
      <id>001</id>                         <!-- OPTIONAL - defaults to "Unknown" -->
      <description>Basic land</description><!-- OPTIONAL -->
      <query>island borderless</query>     <!-- OPTIONAL -->
      <bleedchecked>true</bleedchecked>    <!-- OPTIONAL - absent inherits the
                                                configured global bleed default -->
    </card>
  </fronts>
</order>
` + "```" + `

## Rules

1. **<fronts> is mandatory.** An order without it is rejected as malformed;
   nothing partial is imported.
2. **Card order is print order.** Cards land in the output collection in
   document order, including failed placeholders.
3. **Card ids must be unique within one order.** Repeats after the first
   occurrence are dropped and counted as skipped.
4. **Each card id is resolved against the image lookup service.** A failed
   lookup marks that one card failed; sibling cards still resolve.
`
